package logging

import (
	"log/slog"
	"strings"
)

const redacted = "********"

// redactAttr masks secrets that reach the log: password values outright and
// the password inside libpq connection strings.
func redactAttr(attr slog.Attr) slog.Attr {
	switch strings.ToLower(attr.Key) {
	case "password", "token":
		if attr.Value.Kind() == slog.KindGroup {
			return attr
		}
		return slog.String(attr.Key, redacted)
	case FieldConnInfo:
		if attr.Value.Kind() == slog.KindString {
			return slog.String(attr.Key, RedactConnInfo(attr.Value.String()))
		}
	}
	return attr
}

// RedactConnInfo masks the password in a libpq keyword/value connection
// string or a postgres:// URL. Other parameters are kept.
func RedactConnInfo(connInfo string) string {
	if scheme, rest, ok := strings.Cut(connInfo, "://"); ok {
		authority := rest
		if slash := strings.Index(rest, "/"); slash >= 0 {
			authority = rest[:slash]
		}
		at := strings.LastIndex(authority, "@")
		if at < 0 {
			return connInfo
		}
		user, _, hasPassword := strings.Cut(authority[:at], ":")
		if !hasPassword {
			return connInfo
		}
		return scheme + "://" + user + ":" + redacted + rest[at:]
	}

	fields := strings.Fields(connInfo)
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		key, value, ok := strings.Cut(fields[i], "=")
		if !ok || key != "password" {
			out = append(out, fields[i])
			continue
		}
		out = append(out, key+"="+redacted)
		if !strings.HasPrefix(value, "'") {
			continue
		}
		// A quoted value may span several fields; skip to its closing quote.
		rest := strings.TrimPrefix(value, "'")
		for !closesQuote(rest) && i+1 < len(fields) {
			i++
			rest = fields[i]
		}
	}
	return strings.Join(out, " ")
}

func closesQuote(s string) bool {
	return strings.HasSuffix(s, "'") && !strings.HasSuffix(s, `\'`)
}
