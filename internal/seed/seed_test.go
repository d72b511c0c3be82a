package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[admin]
email = " Admin@Club.Example "
password = "change-me"
first_name = "Club"
last_name = "Admin"
position = "President"

[[partners]]
name = "Campus Library"
description = "Study rooms for members"
website = "https://library.example"

[[partners]]
name = "Robotics Lab"
description = "Hardware for workshops"
`

func TestParse(t *testing.T) {
	file, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NotNil(t, file.Admin)

	assert.Equal(t, "admin@club.example", file.Admin.Email)
	assert.Equal(t, "President", file.Admin.Position)
	require.Len(t, file.Partners, 2)
	assert.Equal(t, "https://library.example", file.Partners[0].Website)
	assert.Empty(t, file.Partners[1].Website)
}

func TestParseWithoutAdmin(t *testing.T) {
	file, err := Parse([]byte("[[partners]]\nname = \"A\"\ndescription = \"B\"\n"))
	require.NoError(t, err)
	assert.Nil(t, file.Admin)
	assert.Len(t, file.Partners, 1)
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"bad email":       "[admin]\nemail = \"nope\"\npassword = \"secret1\"\nfirst_name = \"A\"\nlast_name = \"B\"\n",
		"short password":  "[admin]\nemail = \"a@b.c\"\npassword = \"123\"\nfirst_name = \"A\"\nlast_name = \"B\"\n",
		"missing name":    "[admin]\nemail = \"a@b.c\"\npassword = \"secret1\"\n",
		"partner no desc": "[[partners]]\nname = \"Lab\"\n",
		"broken toml":     "[admin\n",
	}
	for name, data := range cases {
		_, err := Parse([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	file, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, file.Partners, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestOptional(t *testing.T) {
	assert.Nil(t, optional("   "))
	require.NotNil(t, optional(" x "))
	assert.Equal(t, "x", *optional(" x "))
}
