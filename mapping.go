package ldapc

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"
)

// fieldKind distinguishes a single-valued field from a multi-valued one
// (design §3's Record type descriptor kind ∈ {Single, Multiple}).
type fieldKind int

const (
	kindSingle fieldKind = iota
	kindMultiple
)

// defaultPolicy distinguishes what happens when an attribute is absent
// (design §3's default? ∈ {Error, TypeDefault}).
type defaultPolicy int

const (
	policyError defaultPolicy = iota
	policyTypeDefault
)

// fieldDescriptor is one entry of a record-type descriptor (design §3,
// §4.5 "Record-type descriptor (for C6)"): an attribute-name-to-field
// mapping plus the policy for decoding it.
type fieldDescriptor struct {
	structIndex int
	attribute   string
	kind        fieldKind
	policy      defaultPolicy
	isDN        bool
	nonzero     bool
}

// entryDescriptor is the resolved, cached mapping for one record type T.
// It is built once via reflection over T's struct tags (design note §9:
// "a reflection-capable language may derive it from annotations") and
// reused for every entry decoded into that type.
type entryDescriptor struct {
	fields []fieldDescriptor
	dnIndex int
	hasDN   bool
}

var descriptorCache sync.Map // map[reflect.Type]*entryDescriptor

// ldapTag parses the `ldap:"name,option,option"` struct tag described in
// the library's record-mapping surface (design §6): the first
// comma-separated piece is the attribute name (defaulting to the field
// name verbatim when empty), followed by any of "multiple", "default",
// "dn" or "nonzero" (the non-zero integer variants named in spec §4.5:
// reject a parsed value of exactly 0).
type ldapTag struct {
	name       string
	multiple   bool
	hasDefault bool
	isDN       bool
	nonzero    bool
}

func parseLdapTag(raw, fieldName string) ldapTag {
	tag := ldapTag{name: fieldName}
	if raw == "" {
		return tag
	}
	parts := splitComma(raw)
	if len(parts) > 0 && parts[0] != "" {
		tag.name = parts[0]
	}
	for _, opt := range parts[1:] {
		switch opt {
		case "multiple":
			tag.multiple = true
		case "default":
			tag.hasDefault = true
		case "dn":
			tag.isDN = true
		case "nonzero":
			tag.nonzero = true
		}
	}
	return tag
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func descriptorFor(t reflect.Type) (*entryDescriptor, error) {
	if cached, ok := descriptorCache.Load(t); ok {
		return cached.(*entryDescriptor), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("ldapc: entry type %s must be a struct", t)
	}
	desc := &entryDescriptor{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := parseLdapTag(field.Tag.Get("ldap"), field.Name)
		if tag.isDN {
			if desc.hasDN {
				return nil, fmt.Errorf("ldapc: entry type %s declares more than one dn field", t)
			}
			desc.hasDN = true
			desc.dnIndex = i
			continue
		}
		fd := fieldDescriptor{
			structIndex: i,
			attribute:   tag.name,
			kind:        kindSingle,
			policy:      policyError,
		}
		if tag.multiple {
			fd.kind = kindMultiple
		}
		if tag.hasDefault {
			fd.policy = policyTypeDefault
		}
		fd.nonzero = tag.nonzero
		desc.fields = append(desc.fields, fd)
	}
	descriptorCache.Store(t, desc)
	return desc, nil
}

// attributeNames returns the attribute names this descriptor will request
// in a SearchRequest, per design §4.5: "if descriptor lists attributes,
// send exactly those names".
func (d *entryDescriptor) attributeNames() []string {
	names := make([]string, 0, len(d.fields))
	for _, f := range d.fields {
		names = append(names, f.attribute)
	}
	return names
}

// mapEntry implements C6: build T from raw according to T's descriptor.
func mapEntry[T any](raw RawEntry) (T, error) {
	var out T
	t := reflect.TypeOf(out)
	desc, err := descriptorFor(t)
	if err != nil {
		return out, err
	}
	v := reflect.New(t).Elem()

	if desc.hasDN {
		v.Field(desc.dnIndex).SetString(raw.DN)
	}

	for _, f := range desc.fields {
		values := raw.Values(f.attribute)
		field := v.Field(f.structIndex)

		if len(values) == 0 {
			if f.policy == policyTypeDefault {
				continue
			}
			return out, &SearchResultError{Kind: searchKindMissingAttributeValue, FieldName: f.attribute}
		}

		if f.kind == kindMultiple {
			if err := setMultiValue(field, values, f.nonzero); err != nil {
				return out, &SearchResultError{Kind: searchKindFailedToParseField, FieldName: f.attribute, Err: err}
			}
			continue
		}

		if len(values) > 1 {
			return out, &SearchResultError{Kind: searchKindTooManyValuesInScalarField, FieldName: f.attribute}
		}
		if err := setScalarValue(field, values[0], f.nonzero); err != nil {
			return out, &SearchResultError{Kind: searchKindFailedToParseField, FieldName: f.attribute, Err: err}
		}
	}

	result, ok := v.Interface().(T)
	if !ok {
		return out, fmt.Errorf("ldapc: internal mapping error for %s", t)
	}
	return result, nil
}

var timeType = reflect.TypeOf(time.Time{})

// generalizedTimeLayouts covers RFC 4517 §3.3.13's GeneralizedTime syntax:
// a UTC offset of "Z" or "+-HHMM", with an optional fractional-second part
// that strconv-based parsing can't express as a single layout.
var generalizedTimeLayouts = []string{
	"20060102150405Z0700",
	"20060102150405.9Z0700",
}

// parseGeneralizedTime parses an LDAP GeneralizedTime value (RFC 4517
// §3.3.13), trying each layout in generalizedTimeLayouts in turn.
func parseGeneralizedTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range generalizedTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("ldapc: %q is not a valid GeneralizedTime: %w", raw, lastErr)
}

// setScalarValue parses one octet-string value into field, per the
// built-in parsers listed in design §4.5. When nonzero is true (the
// field's "nonzero" tag option), a successfully parsed integer or
// unsigned integer value of exactly 0 is rejected.
func setScalarValue(field reflect.Value, raw []byte, nonzero bool) error {
	if field.Type() == timeType {
		t, err := parseGeneralizedTime(string(raw))
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(string(raw))
		return nil
	case reflect.Bool:
		switch string(raw) {
		case "TRUE":
			field.SetBool(true)
		case "FALSE":
			field.SetBool(false)
		default:
			return fmt.Errorf("ldapc: %q is not a valid LDAP boolean", raw)
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(string(raw), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("ldapc: parse integer %q: %w", raw, err)
		}
		if nonzero && n == 0 {
			return fmt.Errorf("ldapc: integer field requires a non-zero value, got %q", raw)
		}
		field.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(string(raw), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("ldapc: parse unsigned integer %q: %w", raw, err)
		}
		if nonzero && n == 0 {
			return fmt.Errorf("ldapc: unsigned integer field requires a non-zero value, got %q", raw)
		}
		field.SetUint(n)
		return nil
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			field.SetBytes(append([]byte(nil), raw...))
			return nil
		}
	}
	return fmt.Errorf("ldapc: unsupported scalar field type %s", field.Type())
}

// setMultiValue parses every octet-string value in raw into a slice field,
// in server wire order (design §4.5: "Multi-value containers for an
// ordered sequence receive values in server order").
func setMultiValue(field reflect.Value, raw [][]byte, nonzero bool) error {
	if field.Kind() != reflect.Slice {
		return fmt.Errorf("ldapc: multiple-valued field must be a slice, got %s", field.Type())
	}
	elemType := field.Type().Elem()
	out := reflect.MakeSlice(field.Type(), len(raw), len(raw))
	for i, value := range raw {
		elem := reflect.New(elemType).Elem()
		if err := setScalarValue(elem, value, nonzero); err != nil {
			return err
		}
		out.Index(i).Set(elem)
	}
	field.Set(out)
	return nil
}
