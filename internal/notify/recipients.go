package notify

import (
	"fmt"
	"strings"
)

type Resolver interface {
	Resolve(ownerID string) (string, error)
}

// Directory maps owner ids to addresses. With Passthrough set, an owner not in
// the table is addressed as Prefix+ownerID.
type Directory struct {
	Table       map[string]string
	Prefix      string
	Passthrough bool
}

func (d Directory) Resolve(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", ErrNoRecipient
	}
	if to, ok := d.Table[ownerID]; ok && to != "" {
		return to, nil
	}
	if d.Passthrough {
		return d.Prefix + ownerID, nil
	}
	return "", fmt.Errorf("%s: %w", ownerID, ErrNoRecipient)
}

// ParseTable reads "owner=address" pairs separated by commas.
func ParseTable(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("notify.ParseTable: bad entry %q", part)
		}
		out[k] = v
	}
	return out, nil
}
