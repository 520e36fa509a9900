package querysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// PlaceholderStyle names a driver's positional parameter syntax.
type PlaceholderStyle string

const (
	StyleQuestion PlaceholderStyle = "question" // ?     (sqlite3, mysql)
	StyleDollar   PlaceholderStyle = "dollar"   // $1    (postgres)
	StyleColon    PlaceholderStyle = "colon"    // :1    (oracle)
	StyleAtP      PlaceholderStyle = "atp"      // @p1   (sql server)
)

// ParsePlaceholderStyle resolves a style name. The empty string is StyleQuestion.
func ParsePlaceholderStyle(s string) (PlaceholderStyle, error) {
	switch PlaceholderStyle(strings.ToLower(s)) {
	case "", StyleQuestion:
		return StyleQuestion, nil
	case StyleDollar:
		return StyleDollar, nil
	case StyleColon:
		return StyleColon, nil
	case StyleAtP:
		return StyleAtP, nil
	}
	return "", fmt.Errorf("unknown placeholder style %q (want question, dollar, colon or atp)", s)
}

func (s PlaceholderStyle) format() sq.PlaceholderFormat {
	switch s {
	case StyleDollar:
		return sq.Dollar
	case StyleColon:
		return sq.Colon
	case StyleAtP:
		return sq.AtP
	default:
		return sq.Question
	}
}

// Rebind rewrites the `?` placeholders of sql into style.
func Rebind(sql string, style PlaceholderStyle) (string, error) {
	out, err := style.format().ReplacePlaceholders(sql)
	if err != nil {
		return "", fmt.Errorf("rebinding placeholders: %w", err)
	}
	return out, nil
}

// Rebind returns a copy of s with its placeholders in style.
// Params are shared with s.
func (s Statement) Rebind(style PlaceholderStyle) (Statement, error) {
	out, err := Rebind(s.SQL, style)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: out, Params: s.Params}, nil
}

// CountPlaceholders counts `?` tokens in sql.
func CountPlaceholders(sql string) int {
	return strings.Count(sql, Placeholder)
}
