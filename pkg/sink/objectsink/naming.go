package objectsink

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Name template placeholders.
const (
	PlaceholderObjectNum = "%OBJECTNUM"
	PlaceholderTime      = "%TIME"
	PlaceholderHost      = "%HOST"
	PlaceholderProcessID = "%PROCESSID"
)

const timeLayout = "20060102T150405Z"

// ObjectName expands a name template for the objectNum-th object opened at
// openedAt. The result always starts with "/".
func ObjectName(template string, objectNum int, openedAt time.Time) string {
	host, _ := os.Hostname()
	r := strings.NewReplacer(
		PlaceholderObjectNum, strconv.Itoa(objectNum),
		PlaceholderTime, openedAt.UTC().Format(timeLayout),
		PlaceholderHost, host,
		PlaceholderProcessID, strconv.Itoa(os.Getpid()),
	)
	name := r.Replace(template)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}
