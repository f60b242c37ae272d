package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Gateway llamadas del cliente de caja a la API de ventas. Cada respuesta exitosa de venta
// trae el snapshot completo de la sesión.
type Gateway interface {
	Open(ctx context.Context, branchID string) (*dto.SaleSessionResponse, error)
	Get(ctx context.Context, saleID string) (*dto.SaleSessionResponse, error)
	AddLine(ctx context.Context, saleID, productID string, qty int) (*dto.LineMutationResponse, error)
	UpdateLine(ctx context.Context, saleID, lineID string, qty int) (*dto.LineMutationResponse, error)
	RemoveLine(ctx context.Context, saleID, lineID string) (*dto.LineMutationResponse, error)
	Finalize(ctx context.Context, saleID string, req dto.FinalizeRequest) (*dto.FinalizeResponse, error)
	Cancel(ctx context.Context, saleID string) (*dto.SaleSessionResponse, error)
}

// HTTPConfig parámetros del gateway HTTP.
type HTTPConfig struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	ReadRetries  int
	RetryInitial time.Duration
	HTTPClient   *http.Client // opcional (tests)
	Log          *logger.Logger
}

// HTTPGateway implementa Gateway sobre net/http con circuit breaker. Solo las lecturas
// (abrir y consultar) se reintentan con backoff exponencial; las mutaciones nunca.
type HTTPGateway struct {
	baseURL      string
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker
	readRetries  uint64
	retryInitial time.Duration
	log          *logger.Logger

	mu    sync.RWMutex
	token string
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway construye el gateway.
func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retries := cfg.ReadRetries
	if retries < 0 {
		retries = 0
	}
	initial := cfg.RetryInitial
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ventas-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker cambió de estado")
		},
	})
	return &HTTPGateway{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		client:       httpClient,
		breaker:      breaker,
		readRetries:  uint64(retries),
		retryInitial: initial,
		log:          log,
		token:        cfg.Token,
	}
}

// SetToken reemplaza el token Bearer (después de Login).
func (g *HTTPGateway) SetToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

// Token devuelve el token Bearer vigente.
func (g *HTTPGateway) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// Login obtiene el token del turno y lo deja configurado en el gateway.
func (g *HTTPGateway) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := g.read(ctx, "login", func() error {
		return g.exchange(ctx, "login", http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: email, Password: password}, &out)
	})
	if err != nil {
		return nil, err
	}
	g.SetToken(out.Token)
	return &out, nil
}

// Me consulta el operador del token configurado (sucursal y rol).
func (g *HTTPGateway) Me(ctx context.Context) (*dto.UserResponse, error) {
	var out dto.UserResponse
	err := g.read(ctx, "me", func() error {
		return g.exchange(ctx, "me", http.MethodGet, "/api/auth/me", nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Open(ctx context.Context, branchID string) (*dto.SaleSessionResponse, error) {
	var out dto.SaleSessionResponse
	err := g.read(ctx, "open", func() error {
		return g.exchange(ctx, "open", http.MethodPost, "/api/sales", dto.OpenSaleRequest{BranchID: branchID}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Get(ctx context.Context, saleID string) (*dto.SaleSessionResponse, error) {
	var out dto.SaleSessionResponse
	err := g.read(ctx, "get", func() error {
		return g.exchange(ctx, "get", http.MethodGet, "/api/sales/"+saleID, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) AddLine(ctx context.Context, saleID, productID string, qty int) (*dto.LineMutationResponse, error) {
	var out dto.LineMutationResponse
	if err := g.exchange(ctx, "add_line", http.MethodPost, "/api/sales/"+saleID+"/lines",
		dto.AddLineRequest{ProductID: productID, Quantity: qty}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) UpdateLine(ctx context.Context, saleID, lineID string, qty int) (*dto.LineMutationResponse, error) {
	var out dto.LineMutationResponse
	if err := g.exchange(ctx, "update_line", http.MethodPatch, "/api/sales/"+saleID+"/lines/"+lineID,
		dto.UpdateLineRequest{Quantity: &qty}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) RemoveLine(ctx context.Context, saleID, lineID string) (*dto.LineMutationResponse, error) {
	var out dto.LineMutationResponse
	if err := g.exchange(ctx, "remove_line", http.MethodDelete, "/api/sales/"+saleID+"/lines/"+lineID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Finalize(ctx context.Context, saleID string, req dto.FinalizeRequest) (*dto.FinalizeResponse, error) {
	var out dto.FinalizeResponse
	if err := g.exchange(ctx, "finalize", http.MethodPost, "/api/sales/"+saleID+"/finalize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Cancel(ctx context.Context, saleID string) (*dto.SaleSessionResponse, error) {
	var out dto.SaleSessionResponse
	if err := g.exchange(ctx, "cancel", http.MethodPost, "/api/sales/"+saleID+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// read reintenta op con backoff exponencial solo ante fallas de red; los errores de negocio son permanentes.
func (g *HTTPGateway) read(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.retryInitial
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, g.readRetries), ctx)

	err := backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !isNetwork(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		g.log.Debug().Err(err).Str("op", op).Dur("wait", wait).Msg("reintentando lectura")
	})
	var ne *NetworkError
	if errors.As(err, &ne) {
		ne.Retryable = true
	}
	return err
}

type reply struct {
	status int
	body   []byte
}

// exchange hace una llamada HTTP a través del breaker. Solo transporte y 5xx cuentan como falla
// del breaker; los 4xx son respuestas de negocio.
func (g *HTTPGateway) exchange(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("client: codificar %s: %w", op, err)
		}
	}
	res, err := g.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := g.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return reply{status: resp.StatusCode, body: raw}, nil
	})
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	r := res.(reply)
	if r.status >= http.StatusBadRequest {
		return decodeAPIError(r.status, r.body)
	}
	if out != nil {
		// un 2xx ilegible no dice si el servidor aplicó la operación: se trata como falla de red
		if err := json.Unmarshal(r.body, out); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("respuesta ilegible (status %d): %w", r.status, err)}
		}
	}
	return nil
}
