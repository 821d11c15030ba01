package domain

import (
	"fmt"
	"net"
	"strconv"
)

const (
	TierPremium uint8 = 1
	TierPublic  uint8 = 2
	TierBasic   uint8 = 3
)

// Candidate is a harvested proxy endpoint before it is persisted. Identity is
// the (Address, Port, Protocol) triple; everything else is metadata reported
// by the source that listed it.
type Candidate struct {
	Address     string
	Port        uint16
	Protocol    string
	Username    string
	Password    string
	Tier        uint8
	Premium     bool
	Source      string
	Country     string
	CountryCode string
	Region      string
	City        string
	Timezone    string
}

// Key identifies a candidate for deduplication purposes.
func (c Candidate) Key() string {
	return fmt.Sprintf("%s:%d/%s", c.Address, c.Port, c.Protocol)
}

// Endpoint renders the candidate the way probe audit rows record it.
func (c Candidate) Endpoint() string {
	return c.Key()
}

func (c Candidate) GetFullProxy() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port)))
}

func (c Candidate) HasAuth() bool {
	return c.Username != "" || c.Password != ""
}

func (c Candidate) Valid() bool {
	if c.Address == "" || c.Port == 0 {
		return false
	}
	_, ok := ProtocolIDFor(c.Protocol)
	return ok
}
