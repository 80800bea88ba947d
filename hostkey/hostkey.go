// Package hostkey removes stale entries from an OpenSSH known_hosts
// file. Replacing the proxy container reuses localhost:<port>, so an SSH
// client that cached the previous device's host key refuses to connect
// until the entry is gone.
package hostkey

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultPath returns the usual per-user known_hosts location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

// Remove deletes every entry for address (a host:port pair) from the
// file at path, leaving all other lines byte-for-byte untouched. Hashed
// entries are matched the way ssh-keygen -H writes them. A missing file
// is not an error.
func Remove(path, address string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read known_hosts")
	}

	host := knownhosts.Normalize(address)
	kept := make([][]byte, 0)
	removed := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if lineMatchesHost(line, host) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return nil
	}
	if err := os.WriteFile(path, bytes.Join(kept, []byte("\n")), 0600); err != nil {
		return errors.Wrap(err, "write known_hosts")
	}
	return nil
}

func lineMatchesHost(line []byte, host string) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] == '#' {
		return false
	}
	// trimmed aliases the file buffer; the parser needs its own copy.
	entry := make([]byte, 0, len(trimmed)+1)
	entry = append(append(entry, trimmed...), '\n')
	_, hosts, _, _, _, err := ssh.ParseKnownHosts(entry)
	if err != nil {
		return false
	}
	for _, h := range hosts {
		if h == host || hashedMatch(h, host) {
			return true
		}
	}
	return false
}

// hashedMatch checks a "|1|salt|digest" pattern against a hostname:
// digest is HMAC-SHA1 keyed with the salt over the hostname.
func hashedMatch(pattern, host string) bool {
	parts := strings.Split(pattern, "|")
	if len(parts) != 4 || parts[0] != "" || parts[1] != "1" {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, salt)
	mac.Write([]byte(host))
	return hmac.Equal(mac.Sum(nil), want)
}
