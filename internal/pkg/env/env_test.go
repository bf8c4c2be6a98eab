package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv_PrefersLoadedFile(t *testing.T) {
	t.Setenv("UNICLIPS_TEST_KEY", "from-os")
	Env = map[string]string{"UNICLIPS_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, "from-file", GetEnv("UNICLIPS_TEST_KEY", "def"))
	delete(Env, "UNICLIPS_TEST_KEY")
	assert.Equal(t, "from-os", GetEnv("UNICLIPS_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("UNICLIPS_TEST_MISSING", "def"))
}

func TestGetInt(t *testing.T) {
	Env = map[string]string{"A": "42", "B": "x"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 42, GetInt("A", 1))
	assert.Equal(t, 1, GetInt("B", 1))
	assert.Equal(t, 7, GetInt("UNICLIPS_TEST_MISSING", 7))
}
