package localproxy

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Images published by the AWS IoT secure tunneling localproxy project.
const (
	imageAMD64 = "public.ecr.aws/aws-iot-securetunneling-localproxy/ubuntu-bin:amd64-latest"
	imageARM64 = "public.ecr.aws/aws-iot-securetunneling-localproxy/ubuntu-bin:arm64-latest"
	imageARMv7 = "public.ecr.aws/aws-iot-securetunneling-localproxy/ubuntu-bin:armv7-latest"
)

var imageByMachine = map[string]string{
	"x86_64": imageAMD64,
	"arm64":  imageARM64,
	"armv7l": imageARMv7,
}

// ImageForMachine maps a uname-style machine identifier to the localproxy
// image built for it. Known aliases fold into the canonical names:
// Windows reports "AMD64" and most Linux arm64 kernels report "aarch64".
func ImageForMachine(machine string) (string, error) {
	switch machine {
	case "AMD64", "amd64":
		machine = "x86_64"
	case "aarch64":
		machine = "arm64"
	}
	image, ok := imageByMachine[machine]
	if !ok {
		return "", &UnsupportedPlatformError{Machine: machine}
	}
	return image, nil
}

// HostMachine reports the machine field of uname(2) for the local host.
func HostMachine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", errors.Wrap(err, "uname")
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
