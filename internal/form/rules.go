package form

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
)

// Rule checks one field. It returns an error message, or "" when the value
// passes. values holds the whole form for cross-field checks.
type Rule func(value interface{}, values entity.Record) string

// Rules maps a field path to its rules, evaluated in order.
type Rules map[string][]Rule

var validate = validator.New()

func blank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

// Required fails on nil, blank strings and empty lists.
func Required() Rule {
	return func(v interface{}, _ entity.Record) string {
		if blank(v) {
			return "Ce champ est requis"
		}
		return ""
	}
}

// Pattern fails when a non-blank string value does not match expr.
func Pattern(expr, msg string) Rule {
	re := regexp.MustCompile(expr)
	if msg == "" {
		msg = "Format invalide"
	}
	return func(v interface{}, _ entity.Record) string {
		s, ok := v.(string)
		if !ok || blank(s) {
			return ""
		}
		if !re.MatchString(s) {
			return msg
		}
		return ""
	}
}

// Format checks email and url values with the validator package.
func Format(kind string) Rule {
	var tag, msg string
	switch kind {
	case "email":
		tag, msg = "email", "Adresse email invalide"
	case "url":
		tag, msg = "url", "URL invalide"
	default:
		panic(fmt.Sprintf("form: unknown format %q", kind))
	}
	return func(v interface{}, _ entity.Record) string {
		s, ok := v.(string)
		if !ok || blank(s) {
			return ""
		}
		if err := validate.Var(s, tag); err != nil {
			return msg
		}
		return ""
	}
}

// MinLength fails when a non-blank string has fewer than n characters.
func MinLength(n int) Rule {
	return func(v interface{}, _ entity.Record) string {
		s, ok := v.(string)
		if !ok || blank(s) {
			return ""
		}
		if utf8.RuneCountInString(s) < n {
			return fmt.Sprintf("Au moins %d caractères", n)
		}
		return ""
	}
}

// MaxLength fails when a string exceeds n characters.
func MaxLength(n int) Rule {
	return func(v interface{}, _ entity.Record) string {
		s, ok := v.(string)
		if ok && utf8.RuneCountInString(s) > n {
			return fmt.Sprintf("Au plus %d caractères", n)
		}
		return ""
	}
}

// OneOf fails when a non-blank value is not one of allowed.
func OneOf(allowed ...string) Rule {
	return func(v interface{}, _ entity.Record) string {
		if blank(v) {
			return ""
		}
		s := fmt.Sprint(v)
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return "Valeur non autorisée"
	}
}

// Number fails when a non-blank value is not numeric.
func Number() Rule {
	return func(v interface{}, _ entity.Record) string {
		switch t := v.(type) {
		case nil, int, int32, int64, float32, float64:
			return ""
		case string:
			if blank(t) {
				return ""
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return ""
			}
		}
		return "Nombre invalide"
	}
}

// Date fails when a non-blank value is not a date.
func Date() Rule {
	return func(v interface{}, _ entity.Record) string {
		if blank(v) {
			return ""
		}
		if _, ok := (entity.Record{"v": v}).Time("v"); !ok {
			return "Date invalide"
		}
		return ""
	}
}

// Check wraps a cross-field predicate; fn returns true when the form is valid.
func Check(msg string, fn func(values entity.Record) bool) Rule {
	return func(_ interface{}, values entity.Record) string {
		if fn(values) {
			return ""
		}
		return msg
	}
}

// RulesFor derives rules from the schema field attributes and adds the
// catalog cross-field checks.
func RulesFor(schema entity.Schema) Rules {
	rules := Rules{}
	for _, f := range schema.Fields {
		var rs []Rule
		if f.Required {
			rs = append(rs, Required())
		}
		switch f.Kind {
		case entity.KindNumber:
			rs = append(rs, Number())
		case entity.KindDate:
			rs = append(rs, Date())
		}
		if f.Format != "" {
			rs = append(rs, Format(f.Format))
		}
		if f.Pattern != "" {
			rs = append(rs, Pattern(f.Pattern, ""))
		}
		if f.MinLength > 0 {
			rs = append(rs, MinLength(f.MinLength))
		}
		if f.MaxLength > 0 {
			rs = append(rs, MaxLength(f.MaxLength))
		}
		if len(f.OneOf) > 0 {
			rs = append(rs, OneOf(f.OneOf...))
		}
		if len(rs) > 0 {
			rules[f.Name] = rs
		}
	}
	for field, rs := range crossChecks[schema.Collection] {
		rules[field] = append(rules[field], rs...)
	}
	return rules
}

var crossChecks = map[string]Rules{
	entity.Dates: {
		"dateFin": {Check("La date de fin précède la date de début", func(v entity.Record) bool {
			start, ok1 := v.Time("date")
			end, ok2 := v.Time("dateFin")
			return !ok1 || !ok2 || !end.Before(start)
		})},
	},
	entity.Contrats: {
		"montant": {Check("Le montant est obligatoire", func(v entity.Record) bool {
			return v.String("status") != "signed" || !blank(v["montant"])
		})},
	},
}

// Validate runs rules over values and returns the first failing message per
// field, ordered by field path.
func (r Rules) Validate(values entity.Record) []apperr.FieldError {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var errs []apperr.FieldError
	for _, f := range fields {
		v, _ := values.Lookup(f)
		for _, rule := range r[f] {
			if msg := rule(v, values); msg != "" {
				errs = append(errs, apperr.FieldError{Field: f, Message: msg})
				break
			}
		}
	}
	return errs
}
