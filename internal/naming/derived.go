package naming

import (
	"path"
	"regexp"
	"strings"
)

// reResponsiveStem matches the "-<width>w" stem suffix of responsive derivatives.
var reResponsiveStem = regexp.MustCompile(`-[0-9]+w$`)

// IsDerived reports whether name (a path or base name) already carries a
// derivative suffix, so batch runs never re-optimize their own outputs.
func IsDerived(name string) bool {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if strings.HasSuffix(strings.ToLower(stem), OptimizedSuffix) {
		return true
	}
	return reResponsiveStem.MatchString(strings.ToLower(stem))
}
