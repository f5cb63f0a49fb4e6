package chat

import "testing"

func TestStripRelayPrefix(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "glyph prefix",
			in:   "<:clan_icon:123456> steamyplank received a drop: Twisted bow.",
			want: "steamyplank received a drop: Twisted bow.",
		},
		{
			name: "escaped punctuation",
			in:   "<:icon:1> Bob has reached a total level of 2,000\\!",
			want: "Bob has reached a total level of 2,000!",
		},
		{
			name: "no prefix",
			in:   "Bob has left the clan.",
			want: "Bob has left the clan.",
		},
		{
			name: "prefix only",
			in:   "<:icon:1>",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripRelayPrefix(tc.in); got != tc.want {
				t.Errorf("StripRelayPrefix(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
