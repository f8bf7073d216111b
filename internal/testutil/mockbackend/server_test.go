package mockbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/session"
)

// tokens is a fixed TokenSource for tests.
type tokens map[session.Kind]string

func (t tokens) Get(_ context.Context, kind session.Kind) (string, error) {
	if tok, ok := t[kind]; ok {
		return tok, nil
	}
	return "", session.ErrNoToken
}

func TestLoginAndListShipments(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()

	s.AddClient("Ana", "ana@x.com", "111", "segredo")
	s.AddColeta("ana@x.com", backend.Coleta{Destinatario: "Bia"})
	s.AddColeta("other@x.com", backend.Coleta{Destinatario: "Caio"})

	ctx := context.Background()
	client := backend.NewClient(s.URL())

	token, err := client.ClientLogin(ctx, backend.Credentials{Email: "ana@x.com", Senha: "segredo"})
	if err != nil {
		t.Fatalf("ClientLogin failed: %v", err)
	}

	info, ok := session.Inspect(token)
	if !ok || info.Subject != "ana@x.com" {
		t.Errorf("Inspect = %+v, %v", info, ok)
	}

	coletas, err := client.WithTokens(tokens{session.KindClient: token}).ListMyShipments(ctx)
	if err != nil {
		t.Fatalf("ListMyShipments failed: %v", err)
	}
	if len(coletas) != 1 || coletas[0].Destinatario != "Bia" {
		t.Errorf("coletas = %+v", coletas)
	}
	if coletas[0].DriverToken != "" {
		t.Error("driver token leaked to the client")
	}
}

func TestBadCredentials(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	s.AddStaff("Root", "root@x.com", "admin123", "admin")

	_, err := backend.NewClient(s.URL()).AdminLogin(context.Background(), backend.Credentials{Email: "root@x.com", Senha: "nope"})
	if !backend.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRequireKind(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	s.AddClient("Ana", "ana@x.com", "111", "segredo")

	ctx := context.Background()
	client := backend.NewClient(s.URL())
	clientToken, err := client.ClientLogin(ctx, backend.Credentials{Email: "ana@x.com", Senha: "segredo"})
	if err != nil {
		t.Fatalf("ClientLogin failed: %v", err)
	}

	// A client token on an admin endpoint is accepted as a token but denied.
	_, err = client.WithTokens(tokens{session.KindAdmin: clientToken}).ListCollections(ctx)
	if !backend.IsForbidden(err) {
		t.Errorf("expected 403, got %v", err)
	}

	_, err = client.ListCollections(ctx)
	if !backend.IsUnauthorized(err) {
		t.Errorf("expected 401 without token, got %v", err)
	}

	_, err = client.WithTokens(tokens{session.KindAdmin: "garbage"}).ListCollections(ctx)
	if !backend.IsUnauthorized(err) {
		t.Errorf("expected 401 for garbage token, got %v", err)
	}
}

func TestRegisterDuplicateCPF(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	s.AddClient("Ana", "ana@x.com", "111", "segredo")

	err := backend.NewClient(s.URL()).RegisterClient(context.Background(), backend.Registration{
		Nome: "Outra", Email: "outra@x.com", CPFCNPJ: "111", Senha: "segredo",
	})

	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusBadRequest || httpErr.Message != "CPF/CNPJ já cadastrado." {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecoveryFlow(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	s.AddClient("Ana", "ana@x.com", "111", "segredo")

	ctx := context.Background()
	client := backend.NewClient(s.URL())

	// Unknown identities get the same answer.
	if err := client.RequestPasswordReset(ctx, backend.RecoveryRequest{Email: "ghost@x.com", CPFCNPJ: "0"}); err != nil {
		t.Fatalf("unknown identity: %v", err)
	}
	if err := client.RequestPasswordReset(ctx, backend.RecoveryRequest{Email: "ana@x.com", CPFCNPJ: "111"}); err != nil {
		t.Fatalf("known identity: %v", err)
	}

	code := s.ResetCode("ana@x.com")
	if len(code) != 6 {
		t.Fatalf("code = %q", code)
	}
	if err := client.ResetPassword(ctx, backend.PasswordReset{Email: "ana@x.com", Codigo: code, NovaSenha: "novasenha"}); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := client.ClientLogin(ctx, backend.Credentials{Email: "ana@x.com", Senha: "novasenha"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestDriverUpdate(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	c := s.AddColeta("ana@x.com", backend.Coleta{})

	ctx := context.Background()
	client := backend.NewClient(s.URL())

	err := client.UpdateDriverStatus(ctx, backend.DriverUpdate{
		NumeroEncomenda: c.NumeroEncomenda, Token: "wrong", Localizacao: "X", Status: "entregue",
	})
	if !backend.IsForbidden(err) {
		t.Errorf("expected 403 for a wrong token, got %v", err)
	}

	err = client.UpdateDriverStatus(ctx, backend.DriverUpdate{
		NumeroEncomenda: c.NumeroEncomenda, Token: c.DriverToken, Localizacao: "Campinas", Status: "em_transito",
	})
	if err != nil {
		t.Fatalf("UpdateDriverStatus failed: %v", err)
	}

	got := s.GetColeta(c.ID)
	if got.Status != "em_transito" || len(got.Historico) != 1 || got.Historico[0].Localizacao != "Campinas" {
		t.Errorf("coleta = %+v", got)
	}
}

func TestFailureInjection(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	client := backend.NewClient(s.URL())
	ctx := context.Background()

	s.SetNextHTMLError(http.StatusBadGateway, 1)
	_, err := client.TrackShipment(ctx, "EF1")
	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Message != backend.GenericFailureMessage {
		t.Fatalf("expected generic message, got %v", err)
	}

	s.SetNextError(http.StatusServiceUnavailable, "manutenção", 2)
	for range 2 {
		if _, err := client.TrackShipment(ctx, "EF1"); backend.StatusOf(err) != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %v", err)
		}
	}
	if _, err := client.TrackShipment(ctx, "EF1"); !backend.IsNotFound(err) {
		t.Errorf("expected 404 once failures are used up, got %v", err)
	}
}

func TestRequestCountAndReset(t *testing.T) {
	t.Parallel()
	s := New()
	defer s.Close()
	s.AddStaff("Root", "root@x.com", "admin123", "admin")

	_, _ = backend.NewClient(s.URL()).TrackShipment(context.Background(), "EF9")
	if n := s.RequestCount(http.MethodGet, "/api/rastreio/EF9"); n != 1 {
		t.Errorf("RequestCount = %d", n)
	}
	if n := s.TotalRequests(); n != 1 {
		t.Errorf("TotalRequests = %d", n)
	}

	req, _ := http.NewRequest(http.MethodDelete, s.URL()+"/admin/reset", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(s.URL() + "/admin/state")
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	defer resp.Body.Close()
	var st StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Staff != 0 || st.Requests["GET /api/rastreio/EF9"] != 0 {
		t.Errorf("state after reset = %+v", st)
	}
}

func TestLoggingMiddlewareMasksSecrets(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	defer s.Close()
	s.AddStaff("Root", "root@x.com", "admin123-secret", "admin")

	token, err := backend.NewClient(s.URL()).AdminLogin(context.Background(),
		backend.Credentials{Email: "root@x.com", Senha: "admin123-secret"})
	if err != nil {
		t.Fatalf("AdminLogin failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "admin123-secret") || strings.Contains(out, token) {
		t.Errorf("log leaks secrets:\n%s", out)
	}
	if !strings.Contains(out, "mockbackend received request") {
		t.Errorf("missing request log:\n%s", out)
	}
}
