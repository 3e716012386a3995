package ldapc

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	DN      string   `ldap:",dn"`
	CN      string   `ldap:"cn"`
	Mail    []string `ldap:"mail,multiple"`
	Age     int      `ldap:"age,default"`
	Admin   bool     `ldap:"isAdmin,default"`
	UIDNumber int    `ldap:"uidNumber,default,nonzero"`
}

func TestMapEntryPopulatesAllFieldKinds(t *testing.T) {
	raw := RawEntry{
		DN: "cn=Alice,dc=example,dc=com",
		Attributes: []Attribute{
			{Type: "cn", Values: [][]byte{[]byte("Alice")}},
			{Type: "mail", Values: [][]byte{[]byte("alice@example.com"), []byte("alice@other.example.com")}},
			{Type: "isAdmin", Values: [][]byte{[]byte("TRUE")}},
		},
	}

	mapped, err := mapEntry[person](raw)
	require.NoError(t, err)
	assert.Equal(t, "cn=Alice,dc=example,dc=com", mapped.DN)
	assert.Equal(t, "Alice", mapped.CN)
	assert.Equal(t, []string{"alice@example.com", "alice@other.example.com"}, mapped.Mail)
	assert.True(t, mapped.Admin)
	assert.Equal(t, 0, mapped.Age, "missing attribute with default policy keeps the zero value")
}

func TestMapEntryMissingRequiredAttributeIsError(t *testing.T) {
	raw := RawEntry{
		DN:         "cn=Bob,dc=example,dc=com",
		Attributes: []Attribute{},
	}
	_, err := mapEntry[person](raw)
	require.Error(t, err)
	var searchErr *SearchResultError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "cn", searchErr.FieldName)
}

func TestMapEntryTooManyValuesInScalarField(t *testing.T) {
	raw := RawEntry{
		Attributes: []Attribute{
			{Type: "cn", Values: [][]byte{[]byte("Alice"), []byte("Alicia")}},
		},
	}
	_, err := mapEntry[person](raw)
	require.Error(t, err)
	var searchErr *SearchResultError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "cn", searchErr.FieldName)
}

func TestAttributeNamesUsesTagNamesNotFieldNames(t *testing.T) {
	attrs := attributeNamesFor(t, person{})
	assert.ElementsMatch(t, []string{"cn", "mail", "age", "isAdmin", "uidNumber"}, attrs)
}

func TestMapEntryNonzeroTagRejectsParsedZero(t *testing.T) {
	raw := RawEntry{
		Attributes: []Attribute{
			{Type: "cn", Values: [][]byte{[]byte("Alice")}},
			{Type: "mail", Values: [][]byte{[]byte("alice@example.com")}},
			{Type: "uidNumber", Values: [][]byte{[]byte("0")}},
		},
	}
	_, err := mapEntry[person](raw)
	require.Error(t, err)
	var searchErr *SearchResultError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "uidNumber", searchErr.FieldName)
}

func TestMapEntryNonzeroTagAcceptsNonzeroValue(t *testing.T) {
	raw := RawEntry{
		Attributes: []Attribute{
			{Type: "cn", Values: [][]byte{[]byte("Alice")}},
			{Type: "mail", Values: [][]byte{[]byte("alice@example.com")}},
			{Type: "uidNumber", Values: [][]byte{[]byte("1001")}},
		},
	}
	mapped, err := mapEntry[person](raw)
	require.NoError(t, err)
	assert.Equal(t, 1001, mapped.UIDNumber)
}

func TestRawEntryValuesIsCaseInsensitive(t *testing.T) {
	entry := RawEntry{Attributes: []Attribute{{Type: "objectClass", Values: [][]byte{[]byte("person")}}}}
	assert.Equal(t, [][]byte{[]byte("person")}, entry.Values("OBJECTCLASS"))
	assert.Nil(t, entry.Values("cn"))
}

func attributeNamesFor(t *testing.T, v any) []string {
	t.Helper()
	desc, err := descriptorFor(reflect.TypeOf(v))
	require.NoError(t, err)
	return desc.attributeNames()
}
