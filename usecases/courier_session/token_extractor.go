package courier_session

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"github.com/tidwall/gjson"
)

var ErrMalformedPayload = errors.New("courier authentication payload is not valid json")

// TokenNotFoundError is returned when none of the probes matched. Fields lists the top
// level field names of the payload (never their values), to diagnose upstream drift.
type TokenNotFoundError struct {
	Fields []string
}

func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("session token not found in courier response (fields: [%s])",
		strings.Join(e.Fields, ", "))
}

// TokenProbe looks for the session token at one place of an authentication payload.
type TokenProbe interface {
	Name() string
	Probe(doc gjson.Result) (string, bool)
}

// FieldProbe reads a string at a gjson path, e.g. "tokens.SsoHopps".
type FieldProbe struct {
	Path string
}

func (p FieldProbe) Name() string { return p.Path }

func (p FieldProbe) Probe(doc gjson.Result) (string, bool) {
	return nonEmptyString(doc.Get(p.Path))
}

// FirstElementProbe reads Field on the first element of the array found at ArrayPath.
type FirstElementProbe struct {
	ArrayPath string
	Field     string
}

func (p FirstElementProbe) Name() string { return p.ArrayPath + "[0]." + p.Field }

func (p FirstElementProbe) Probe(doc gjson.Result) (string, bool) {
	arr := doc.Get(p.ArrayPath)
	if !arr.IsArray() {
		return "", false
	}
	items := arr.Array()
	if len(items) == 0 {
		return "", false
	}
	return nonEmptyString(items[0].Get(p.Field))
}

func nonEmptyString(r gjson.Result) (string, bool) {
	if r.Type != gjson.String || r.Str == "" {
		return "", false
	}
	return r.Str, true
}

// Order matters: the first probe that resolves wins.
var defaultTokenProbes = []TokenProbe{
	FieldProbe{Path: "SsoHopps"},
	FieldProbe{Path: "ssoHopps"},
	FieldProbe{Path: "token"},
	FieldProbe{Path: "Token"},
	FieldProbe{Path: "access_token"},
	FieldProbe{Path: "accessToken"},
	FieldProbe{Path: "tokens.SsoHopps"},
	FieldProbe{Path: "shortToken.SsoHopps"},
	FirstElementProbe{ArrayPath: "habilitationAD.SsoHopps", Field: "valeur"},
}

type TokenExtractor struct {
	probes []TokenProbe
}

// NewTokenExtractor returns an extractor trying the known token locations, then the extra
// probes in the given order.
func NewTokenExtractor(extra ...TokenProbe) TokenExtractor {
	probes := make([]TokenProbe, 0, len(defaultTokenProbes)+len(extra))
	probes = append(probes, defaultTokenProbes...)
	probes = append(probes, extra...)
	return TokenExtractor{probes: probes}
}

func (e TokenExtractor) Extract(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", ErrMalformedPayload
	}
	doc := gjson.ParseBytes(raw)

	for _, probe := range e.probes {
		if token, ok := probe.Probe(doc); ok {
			return token, nil
		}
	}

	return "", &TokenNotFoundError{Fields: topLevelFields(doc)}
}

func topLevelFields(doc gjson.Result) []string {
	if !doc.IsObject() {
		return []string{}
	}
	fields := set.New[string](0)
	doc.ForEach(func(key, _ gjson.Result) bool {
		fields.Insert(key.String())
		return true
	})
	names := fields.Slice()
	slices.Sort(names)
	return names
}
