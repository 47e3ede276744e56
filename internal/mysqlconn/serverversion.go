package mysqlconn

import (
	"errors"
	"strconv"
	"strings"
)

// serverVersion is a parsed MySQL version string, stripped of any
// distribution suffix (e.g. "8.0.34-0ubuntu0.22.04.1" -> [8 0 34]).
type serverVersion []int

func newServerVersion(s string) (serverVersion, error) {
	if i := strings.IndexByte(s, '-'); i != -1 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '+'); i != -1 {
		s = s[:i]
	}
	var sv serverVersion
	for _, v := range strings.Split(s, ".") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		sv = append(sv, n)
	}
	if len(sv) != 3 {
		return nil, errors.New("mysqlconn: invalid server version: " + s)
	}
	return sv, nil
}

func (sv serverVersion) lt(v serverVersion) bool {
	for i := range sv {
		if sv[i] < v[i] {
			return true
		}
		if sv[i] == v[i] {
			continue
		}
		return false
	}
	return false
}

// binlogVersion returns the binlog event-header generation this server
// speaks.
//
// https://dev.mysql.com/doc/internals/en/binlog-version.html
func (sv serverVersion) binlogVersion() uint16 {
	switch {
	case sv.lt(serverVersion{4, 0, 0}):
		return 1
	case sv.lt(serverVersion{4, 0, 2}):
		return 2
	case sv.lt(serverVersion{5, 0, 0}):
		return 3
	default:
		return 4
	}
}
