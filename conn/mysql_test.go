package conn

import "testing"

func TestDSN(t *testing.T) {
	got := dsn("app", "secret", "db.internal", "3306", "praxis")
	want := "app:secret@tcp(db.internal:3306)/praxis?parseTime=true"
	if got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}

func TestDSN_EmptyNameTargetsServer(t *testing.T) {
	got := dsn("root", "", "127.0.0.1", "3306", "")
	want := "root:@tcp(127.0.0.1:3306)/?parseTime=true"
	if got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("CONN_TEST_KEY", "set")
	if got := envOr("CONN_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("envOr = %q, want set value", got)
	}
	if got := envOr("CONN_TEST_KEY_UNSET", "fallback"); got != "fallback" {
		t.Errorf("envOr = %q, want fallback", got)
	}
}
