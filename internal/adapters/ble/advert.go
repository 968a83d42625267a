package ble

import (
	"encoding/binary"
	"strings"

	"github.com/okian/jacktrack/internal/domain/model"
)

// CompanyID tags manufacturer data written by ball firmware.
const CompanyID uint16 = 0xFFFF

const (
	advertLen   = 9
	microdegree = 1e6
)

// Advert is the decoded ball advertisement.
type Advert struct {
	Battery  int
	Position model.Coordinate
}

// DecodeAdvert decodes manufacturer data laid out as one battery byte
// followed by latitude and longitude as little-endian int32 microdegrees.
func DecodeAdvert(data []byte) (Advert, bool) {
	if len(data) < advertLen {
		return Advert{}, false
	}
	lat := int32(binary.LittleEndian.Uint32(data[1:5]))
	lon := int32(binary.LittleEndian.Uint32(data[5:9]))
	a := Advert{
		Battery: int(data[0]),
		Position: model.Coordinate{
			Latitude:  float64(lat) / microdegree,
			Longitude: float64(lon) / microdegree,
		},
	}
	if !a.Position.Valid() {
		return Advert{}, false
	}
	return a, true
}

// EncodeAdvert is the inverse of DecodeAdvert.
func EncodeAdvert(a Advert) []byte {
	b := make([]byte, advertLen)
	b[0] = byte(a.Battery)
	binary.LittleEndian.PutUint32(b[1:5], uint32(int32(a.Position.Latitude*microdegree)))
	binary.LittleEndian.PutUint32(b[5:9], uint32(int32(a.Position.Longitude*microdegree)))
	return b
}

// IsBall reports whether an advertisement belongs to a tracked ball,
// either by local name prefix or by carrying ball manufacturer data.
func IsBall(localName, prefix string, hasBallData bool) bool {
	if hasBallData {
		return true
	}
	return prefix != "" && strings.HasPrefix(localName, prefix)
}
