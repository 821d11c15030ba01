package domain

const (
	ProtocolHTTPID   = 1
	ProtocolSOCKS4ID = 2
	ProtocolSOCKS5ID = 3
)

type Protocol struct {
	ID   int    `gorm:"primaryKey"`
	Name string `gorm:"not null;size:10;uniqueIndex"`
}

func (Protocol) TableName() string {
	return "protocols"
}

var protocolIDByName = map[string]int{
	"http":   ProtocolHTTPID,
	"socks4": ProtocolSOCKS4ID,
	"socks5": ProtocolSOCKS5ID,
}

var protocolNameByID = map[int]string{
	ProtocolHTTPID:   "http",
	ProtocolSOCKS4ID: "socks4",
	ProtocolSOCKS5ID: "socks5",
}

// ProtocolIDFor maps a normalized protocol name to its seeded ID.
func ProtocolIDFor(name string) (int, bool) {
	id, ok := protocolIDByName[name]
	return id, ok
}

func ProtocolNameFor(id int) string {
	if name, ok := protocolNameByID[id]; ok {
		return name
	}
	return ""
}
