package resource

import "strings"

// Status is a set of independent lifecycle flags for one resource. The
// connect and download phases progress independently, so a resource can be
// "needs connect" and "needs download" at the same time; a single linear
// enum cannot express that.
type Status uint16

const (
	PreConnect Status = 1 << iota
	Connecting
	Connected
	PreDownload
	Downloading
	Downloaded
	Processing
	Error
)

var statusNames = []struct {
	flag Status
	name string
}{
	{PreConnect, "preconnect"},
	{Connecting, "connecting"},
	{Connected, "connected"},
	{PreDownload, "predownload"},
	{Downloading, "downloading"},
	{Downloaded, "downloaded"},
	{Processing, "processing"},
	{Error, "error"},
}

func (s Status) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, sn := range statusNames {
		if s&sn.flag != 0 {
			names = append(names, sn.name)
		}
	}
	return strings.Join(names, "|")
}

// Names returns the set flags as individual strings, for API responses.
func (s Status) Names() []string {
	names := []string{}
	for _, sn := range statusNames {
		if s&sn.flag != 0 {
			names = append(names, sn.name)
		}
	}
	return names
}
