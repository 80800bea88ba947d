package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotsecuretunneling"
	"github.com/docker/docker/client"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/edgeops/thingtunnel/config"
	"github.com/edgeops/thingtunnel/flags"
	"github.com/edgeops/thingtunnel/hostkey"
	"github.com/edgeops/thingtunnel/localproxy"
	"github.com/edgeops/thingtunnel/tunnel"
)

func main() {
	f, err := flags.ParseArgs(os.Args)
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors: isatty.IsTerminal(os.Stderr.Fd()),
	})
	if f.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := run(context.Background(), f); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags.Flags) error {
	c, err := config.Load(f.ConfigPath)
	if err != nil {
		return err
	}
	flags.MergeConfig(f, c)

	var opts []func(*awsconfig.LoadOptions) error
	if f.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(f.Profile))
	}
	if f.Region != "" {
		opts = append(opts, awsconfig.WithRegion(f.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "load AWS config")
	}
	if awsCfg.Region == "" {
		return errors.New("no AWS region configured: pass -r or set one on the profile")
	}
	logrus.Debugf("using region %s", awsCfg.Region)

	acquirer := &tunnel.Acquirer{
		Client:    iotsecuretunneling.NewFromConfig(awsCfg),
		ThingName: f.ThingName,
	}
	cred, err := acquirer.Acquire(ctx)
	if err != nil {
		return err
	}

	machine, err := localproxy.HostMachine()
	if err != nil {
		return err
	}
	image, err := localproxy.ImageForMachine(machine)
	if err != nil {
		return err
	}
	logrus.Debugf("using image %s for %s", image, machine)

	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return errors.Wrap(err, "create docker client, is Docker installed and running?")
	}
	defer docker.Close()

	launcher := &localproxy.Launcher{Client: docker}
	err = launcher.Launch(ctx, localproxy.Spec{
		ThingName:   f.ThingName,
		Image:       image,
		Token:       cred.Token,
		Region:      awsCfg.Region,
		BindAddress: f.BindAddress,
		Port:        f.Port,
	})
	if err != nil {
		return err
	}

	if f.ForgetHostKey {
		path := c.KnownHostsPath
		if path == "" {
			path = hostkey.DefaultPath()
		}
		address := net.JoinHostPort("localhost", strconv.Itoa(f.Port))
		if err := hostkey.Remove(path, address); err != nil {
			return err
		}
		logrus.Infof("removed cached host key for %s", address)
	}

	fmt.Printf("connect with: ssh -p %d <user>@localhost\n", f.Port)
	return nil
}
