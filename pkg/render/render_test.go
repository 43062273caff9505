package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		env  Environment
		want string
	}{
		{
			name: "version from git describe tag",
			raw:  `version: {{ environ.get('GIT_DESCRIBE_TAG', '') }}`,
			env:  Environment{"GIT_DESCRIBE_TAG": "0.13.4"},
			want: `version: 0.13.4`,
		},
		{
			name: "build number defaults to zero when unset",
			raw:  `number: {{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}`,
			env:  Environment{},
			want: `number: 0`,
		},
		{
			name: "build number from environment",
			raw:  `number: {{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}`,
			env:  Environment{"GIT_DESCRIBE_NUMBER": "7"},
			want: `number: 7`,
		},
		{
			name: "empty string default",
			raw:  `version: {{ environ.get("GIT_DESCRIBE_TAG", "") }}`,
			env:  Environment{},
			want: `version: `,
		},
		{
			name: "bare variable",
			raw:  `python {{ PY_VER }}`,
			env:  Environment{"PY_VER": "2.7"},
			want: `python 2.7`,
		},
		{
			name: "multiple expressions in one document",
			raw:  "version: {{ environ.get('GIT_DESCRIBE_TAG', '') }}\nnumber: {{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}\n",
			env:  Environment{"GIT_DESCRIBE_TAG": "v1.2.3", "GIT_DESCRIBE_NUMBER": "2"},
			want: "version: v1.2.3\nnumber: 2\n",
		},
		{
			name: "text without templates is unchanged",
			raw:  "package:\n  name: numba\n",
			env:  Environment{},
			want: "package:\n  name: numba\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderString(tt.raw, WithEnv(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing env var without default", `version: {{ environ.get('GIT_DESCRIBE_TAG') }}`},
		{"missing bare variable", `python {{ PY_VER }}`},
		{"unsupported expression", `v: {{ os.system("true") }}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderString(tt.raw, WithEnv(Environment{}))
			assert.Error(t, err)
		})
	}
}

func TestEnvironFromOS(t *testing.T) {
	env := EnvironFromOS([]string{"GIT_DESCRIBE_TAG=1.0", "PATH=/usr/bin", "malformed"})
	assert.Equal(t, Environment{"GIT_DESCRIBE_TAG": "1.0", "PATH": "/usr/bin"}, env)
}
