// Package flags provides support for thingtunnel CLI args.
package flags

import (
	"errors"
	"flag"

	"github.com/edgeops/thingtunnel/config"
)

// ErrMissingThingName is returned when no thing name is given.
var ErrMissingThingName = errors.New("missing IoT thing name (-t)")

// Defaults used when neither the command line nor the config file sets a
// value. Port 5555 matches the localproxy image documentation.
const (
	DefaultPort        = 5555
	DefaultBindAddress = "0.0.0.0"
)

// Flags holds CLI arguments for thingtunnel. Zero values mean "not given
// on the command line" until MergeConfig fills them in.
type Flags struct {
	ThingName   string
	Profile     string
	Region      string
	Port        int
	BindAddress string
	ConfigPath  string

	ForgetHostKey bool // drop the cached known_hosts entry for localhost:<port>
	Verbose       bool // show debug-level log output
}

// defineFlags calls fs.StringVar and friends for every thingtunnel flag.
func defineFlags(fs *flag.FlagSet, f *Flags) {
	fs.StringVar(&f.ThingName, "t", "", "IoT thing name (required)")
	fs.StringVar(&f.ThingName, "thing", "", "IoT thing name (required)")
	fs.StringVar(&f.Profile, "p", "", "AWS shared-config profile")
	fs.StringVar(&f.Profile, "profile", "", "AWS shared-config profile")
	fs.StringVar(&f.Region, "r", "", "AWS region (uses the profile's region when unspecified)")
	fs.StringVar(&f.Region, "region", "", "AWS region (uses the profile's region when unspecified)")
	fs.IntVar(&f.Port, "P", 0, "local port the proxy listens on (default 5555)")
	fs.IntVar(&f.Port, "port", 0, "local port the proxy listens on (default 5555)")
	fs.StringVar(&f.BindAddress, "b", "", "proxy bind address (default 0.0.0.0)")
	fs.StringVar(&f.ConfigPath, "C", "", "path to defaults file (uses ~/.config/thingtunnel/config.toml when unspecified)")
	fs.BoolVar(&f.ForgetHostKey, "forget-hostkey", false, "remove the cached host key for localhost:<port> after the proxy starts")
	fs.BoolVar(&f.Verbose, "V", false, "display verbose log output")
}

// ParseArgs defines and parses the thingtunnel flags from the command line.
func ParseArgs(args []string) (*Flags, error) {
	f := new(Flags)
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	defineFlags(fs, f)
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if f.ThingName == "" {
		return nil, ErrMissingThingName
	}
	return f, nil
}

// MergeConfig fills flags not set on the command line from the defaults
// file, then from built-in defaults. Flag values always win.
func MergeConfig(f *Flags, c *config.Config) {
	if f.Profile == "" {
		f.Profile = c.Profile
	}
	if f.Region == "" {
		f.Region = c.Region
	}
	if f.Port == 0 {
		f.Port = c.Port
	}
	if f.Port == 0 {
		f.Port = DefaultPort
	}
	if f.BindAddress == "" {
		f.BindAddress = c.BindAddress
	}
	if f.BindAddress == "" {
		f.BindAddress = DefaultBindAddress
	}
}
