package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"hugefile/pkg/contract"
)

func TestLookupByName(t *testing.T) {
	cases := map[string]string{
		"utf-8":        "utf-8",
		"UTF8":         "utf-8",
		"windows-1251": "windows-1251",
		"koi8-r":       "koi8-r",
		"shift_jis":    "shift_jis",
	}
	for id, want := range cases {
		e, err := Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, want, e.Name, id)
		assert.NotNil(t, e.Encoding, id)
	}
}

func TestLookupByCodePage(t *testing.T) {
	e, err := Lookup("1251")
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1251, e.Encoding)
	assert.Equal(t, "windows-1251", e.Name)

	e, err = Lookup("65001")
	require.NoError(t, err)
	assert.Equal(t, unicode.UTF8, e.Encoding)
}

func TestLookupUnknown(t *testing.T) {
	for _, id := range []string{"no-such-charset", "99999", "-3"} {
		_, err := Lookup(id)
		require.ErrorIs(t, err, contract.ErrEncoding, id)
	}
}

func TestLookupEmptyUsesLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_CTYPE", "")
	t.Setenv("LANG", "ru_RU.KOI8-R")
	e, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "koi8-r", e.Name)

	t.Setenv("LANG", "C")
	e, err = Lookup("  ")
	require.NoError(t, err)
	assert.Equal(t, UTF8.Name, e.Name)
}

func TestFromLocaleModifier(t *testing.T) {
	assert.Equal(t, "iso-8859-15", fromLocale("de_DE.ISO-8859-15@euro").Name)
	assert.Equal(t, UTF8.Name, fromLocale("de_DE.@euro").Name)
	assert.Equal(t, UTF8.Name, fromLocale("en_US.bogus").Name)
}
