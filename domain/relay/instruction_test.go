package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstruction_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Instruction
		want string
	}{
		{"join carries destination", Instruction{Prefix: "w1", Command: CommandJoin, Argument: "900"}, "w1 join 900"},
		{"play with locator", Instruction{Prefix: "w2", Command: CommandPlay, Argument: "https://example.test/track"}, "w2 play https://example.test/track"},
		{"play with query", Instruction{Prefix: "w2", Command: CommandPlay, Argument: "lofi beats"}, "w2 play lofi beats"},
		{"bare command", Instruction{Prefix: "music3", Command: CommandSkip}, "music3 skip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		want    Instruction
		wantErr error
	}{
		{name: "join", text: "music1 join 900", want: Instruction{Prefix: "music1", Command: CommandJoin, Argument: "900"}},
		{name: "query keeps inner spacing", text: "music2 play  lofi  beats ", want: Instruction{Prefix: "music2", Command: CommandPlay, Argument: "lofi  beats"}},
		{name: "stop", text: "music3 stop", want: Instruction{Prefix: "music3", Command: CommandStop}},
		{name: "empty", text: "   ", wantErr: ErrEmptyInstruction},
		{name: "prefix only", text: "music1", wantErr: ErrEmptyInstruction},
		{name: "unknown command", text: "music1 dance", wantErr: ErrUnknownCommand},
		{name: "play without argument", text: "music1 play", wantErr: ErrMissingArgument},
		{name: "join without argument", text: "music1 join", wantErr: ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIsInverseOfString(t *testing.T) {
	t.Parallel()

	for _, in := range []Instruction{
		{Prefix: "w1", Command: CommandJoin, Argument: "18446744073709551615"},
		{Prefix: "w1", Command: CommandLeave, Argument: "1"},
		{Prefix: "w2", Command: CommandPlay, Argument: "some song name"},
		{Prefix: "w3", Command: CommandPause},
		{Prefix: "w3", Command: CommandResume},
	} {
		got, err := Parse(in.String())
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestFirstToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "music1", FirstToken("music1 play x"))
	assert.Equal(t, "music10", FirstToken("  music10 play x"))
	assert.Equal(t, "", FirstToken(""))
}

func TestClassifyOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		order string
		want  OrderKind
	}{
		{"https://example.test/track", OrderLocator},
		{"http://example.test/watch?v=1", OrderLocator},
		{"https://", OrderQuery},
		{"ftp://example.test/a", OrderQuery},
		{"lofi beats", OrderQuery},
		{"example.test/track", OrderQuery},
		{"https://example.test/a b", OrderQuery},
		{"", OrderQuery},
	}

	for _, tt := range tests {
		t.Run(tt.order, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyOrder(tt.order))
		})
	}
}
