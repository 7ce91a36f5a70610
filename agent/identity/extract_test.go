package identity

import "testing"

func TestExplicitHandle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"@CongresoGt", "CongresoGt", true},
		{" @MP_Guatemala ", "MP_Guatemala", true},
		{"https://twitter.com/sandralto7", "sandralto7", true},
		{"https://x.com/DiegoEspana_/", "DiegoEspana_", true},
		{"Diego España", "", false},
		{"@", "", false},
		{"@nombre-con-guion", "", false},
		{"https://x.com/DiegoEspana_/status/1", "", false},
	}
	for _, tc := range cases {
		got, ok := ExplicitHandle(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ExplicitHandle(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHandleFromURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://x.com/DiegoEspana_", "DiegoEspana_", true},
		{"El perfil es https://www.twitter.com/CongresoGt.", "CongresoGt", true},
		{"https://x.com/a https://x.com/A", "a", true},
		{"https://x.com/a https://x.com/b", "", false},
		{"https://x.com/home", "", false},
		{"https://x.com/i/lists/123", "", false},
		{"https://facebook.com/CongresoGt", "", false},
		{"no sé", "", false},
	}
	for _, tc := range cases {
		got, ok := HandleFromURL(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("HandleFromURL(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHandleFromAnswer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"@jperez_gt", "jperez_gt", true},
		{"La cuenta es @jperez_gt (verificada)", "jperez_gt", true},
		{"jperez_gt", "jperez_gt", true},
		{"@uno o @dos", "", false},
		{"NONE", "", false},
		{"correo: alguien@example.com", "", false},
	}
	for _, tc := range cases {
		got, ok := HandleFromAnswer(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("HandleFromAnswer(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsNone(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"NONE", "none", " `NONE` ", "None."} {
		if !IsNone(s) {
			t.Fatalf("IsNone(%q) = false", s)
		}
	}
	if IsNone("https://x.com/NONE_") {
		t.Fatal("url must not be treated as none")
	}
}
