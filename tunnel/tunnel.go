// Package tunnel provisions and rotates AWS IoT secure tunnels for a
// single thing. Each run yields exactly one fresh source access
// credential: from a newly opened tunnel when the thing has none open,
// or by rotating the token of the first open tunnel the service reports.
package tunnel

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotsecuretunneling"
	"github.com/aws/aws-sdk-go-v2/service/iotsecuretunneling/types"
	"github.com/sirupsen/logrus"
)

// ServiceType is the only destination service this tool configures
// tunnels for.
const ServiceType = "SSH"

// API is the subset of the iotsecuretunneling client the Acquirer calls.
type API interface {
	ListTunnels(ctx context.Context, params *iotsecuretunneling.ListTunnelsInput, optFns ...func(*iotsecuretunneling.Options)) (*iotsecuretunneling.ListTunnelsOutput, error)
	DescribeTunnel(ctx context.Context, params *iotsecuretunneling.DescribeTunnelInput, optFns ...func(*iotsecuretunneling.Options)) (*iotsecuretunneling.DescribeTunnelOutput, error)
	OpenTunnel(ctx context.Context, params *iotsecuretunneling.OpenTunnelInput, optFns ...func(*iotsecuretunneling.Options)) (*iotsecuretunneling.OpenTunnelOutput, error)
	RotateTunnelAccessToken(ctx context.Context, params *iotsecuretunneling.RotateTunnelAccessTokenInput, optFns ...func(*iotsecuretunneling.Options)) (*iotsecuretunneling.RotateTunnelAccessTokenOutput, error)
}

// Credential is a freshly issued source access token together with the
// client mode it was issued under.
type Credential struct {
	Token string
	Mode  types.ClientMode
}

// Acquirer obtains a source access credential for one thing.
type Acquirer struct {
	Client    API
	ThingName string
}

// Acquire reuses the first open tunnel for the thing, rotating its
// access token, or opens a new tunnel when none is open. Remote call
// failures are fatal to the run; there are no retries.
func (a *Acquirer) Acquire(ctx context.Context) (*Credential, error) {
	tunnelID, err := a.openTunnelID(ctx)
	if err != nil {
		return nil, err
	}

	if tunnelID == "" {
		logrus.Infof("no open tunnel for %q, opening a new one", a.ThingName)
		out, err := a.Client.OpenTunnel(ctx, &iotsecuretunneling.OpenTunnelInput{
			DestinationConfig: a.destinationConfig(),
		})
		if err != nil {
			return nil, &ServiceError{Op: "open tunnel", Err: err}
		}
		logrus.Infof("opened tunnel %s", aws.ToString(out.TunnelId))
		return newCredential(out.SourceAccessToken, types.ClientModeAll)
	}

	logrus.Infof("found existing tunnel %s", tunnelID)
	mode, err := a.rotationMode(ctx, tunnelID)
	if err != nil {
		return nil, err
	}

	in := &iotsecuretunneling.RotateTunnelAccessTokenInput{
		TunnelId:   aws.String(tunnelID),
		ClientMode: mode,
	}
	if mode == types.ClientModeAll {
		// An ALL rotation reissues the destination token too, so the
		// destination config has to be restated.
		in.DestinationConfig = a.destinationConfig()
	}
	out, err := a.Client.RotateTunnelAccessToken(ctx, in)
	if err != nil {
		return nil, &ServiceError{Op: "rotate tunnel access token", Err: err}
	}
	logrus.Infof("rotated access token for tunnel %s (%s)", tunnelID, mode)
	return newCredential(out.SourceAccessToken, mode)
}

// openTunnelID returns the ID of the first tunnel the service lists in
// OPEN state, in the service's order, or "" when there is none. The
// service does not guarantee a single open tunnel per thing.
func (a *Acquirer) openTunnelID(ctx context.Context) (string, error) {
	out, err := a.Client.ListTunnels(ctx, &iotsecuretunneling.ListTunnelsInput{
		ThingName: aws.String(a.ThingName),
	})
	if err != nil {
		return "", &ServiceError{Op: "list tunnels", Err: err}
	}
	for _, summary := range out.TunnelSummaries {
		if summary.Status == types.TunnelStatusOpen {
			return aws.ToString(summary.TunnelId), nil
		}
	}
	return "", nil
}

// rotationMode picks the client mode for rotating an existing tunnel.
// Rotating in ALL mode invalidates the destination-side token, which
// severs a destination that is already connected; once the destination
// reports CONNECTED, only the source token may be touched.
func (a *Acquirer) rotationMode(ctx context.Context, tunnelID string) (types.ClientMode, error) {
	out, err := a.Client.DescribeTunnel(ctx, &iotsecuretunneling.DescribeTunnelInput{
		TunnelId: aws.String(tunnelID),
	})
	if err != nil {
		return "", &ServiceError{Op: "describe tunnel", Err: err}
	}
	if out.Tunnel != nil && out.Tunnel.DestinationConnectionState != nil &&
		out.Tunnel.DestinationConnectionState.Status == types.ConnectionStatusConnected {
		return types.ClientModeSource, nil
	}
	return types.ClientModeAll, nil
}

func (a *Acquirer) destinationConfig() *types.DestinationConfig {
	return &types.DestinationConfig{
		ThingName: aws.String(a.ThingName),
		Services:  []string{ServiceType},
	}
}

// newCredential validates the token the service handed back. The API can
// answer 200 with a missing or literal "null" token; both are unusable.
func newCredential(token *string, mode types.ClientMode) (*Credential, error) {
	t := aws.ToString(token)
	if t == "" || strings.EqualFold(t, "null") {
		return nil, &ProtocolError{Reason: "service returned no source access token"}
	}
	return &Credential{Token: t, Mode: mode}, nil
}
