package pathutil_test

import (
	"testing"

	"github.com/ito-project/ito/pkg/errclass"
	"github.com/ito-project/ito/pkg/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName_Valid(t *testing.T) {
	valid := []string{"009-02_audit-log", "feature-1", "v1.0", "my_branch", "A-Z.test"}
	for _, name := range valid {
		assert.NoError(t, pathutil.ValidateName(name), "should accept: %s", name)
	}
}

func TestValidateName_Empty(t *testing.T) {
	err := pathutil.ValidateName("")
	require.ErrorIs(t, err, errclass.ErrNameInvalid)
}

func TestValidateName_DotDot(t *testing.T) {
	for _, name := range []string{"..", "a..b"} {
		require.ErrorIs(t, pathutil.ValidateName(name), errclass.ErrNameInvalid, "should reject: %s", name)
	}
}

func TestValidateName_Separators(t *testing.T) {
	for _, name := range []string{"a/b", "a\\b"} {
		require.ErrorIs(t, pathutil.ValidateName(name), errclass.ErrNameInvalid, "should reject: %s", name)
	}
}

func TestValidateName_ControlChars(t *testing.T) {
	require.ErrorIs(t, pathutil.ValidateName("hello\x00world"), errclass.ErrNameInvalid)
}

func TestValidateName_NonASCII(t *testing.T) {
	require.ErrorIs(t, pathutil.ValidateName("café"), errclass.ErrNameInvalid)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "jack", pathutil.Slug("Jack"))
	assert.Equal(t, "jane-q-doe", pathutil.Slug("  Jane  Q Doe "))
	assert.Equal(t, "", pathutil.Slug("   "))
}
