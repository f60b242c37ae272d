package client_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/client"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// fakeGateway servidor mínimo en memoria. Los hooks permiten inyectar fallas; con applyThenFail
// la operación se aplica y luego se devuelve el error (respuesta perdida en la red).
type fakeGateway struct {
	mu      sync.Mutex
	opened  int
	saleID  string
	status  string
	version int
	lines   []dto.SaleLineResponse
	calls   map[string]int

	onAdd         func(productID string) error
	onFinalize    func() error
	onCancel      func() error
	applyThenFail bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: map[string]int{}}
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) hit(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

// closeRemotely simula otra caja que cierra la venta.
func (f *fakeGateway) closeRemotely(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.version++
}

func (f *fakeGateway) draft() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status == entity.SaleStatusDraft
}

func invalidTransition() error {
	return &client.APIError{Status: 409, Code: "INVALID_TRANSITION", Message: "la venta no está en borrador", Err: domain.ErrInvalidTransition}
}

func (f *fakeGateway) snapshotLocked() dto.SaleSessionResponse {
	lines := append([]dto.SaleLineResponse(nil), f.lines...)
	return dto.SaleSessionResponse{ID: f.saleID, BranchID: "1", Status: f.status, Lines: lines, Version: f.version}
}

func (f *fakeGateway) Open(context.Context, string) (*dto.SaleSessionResponse, error) {
	f.hit("open")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	f.saleID = fmt.Sprintf("sale-%d", f.opened)
	f.status = entity.SaleStatusDraft
	f.version = 1
	f.lines = nil
	s := f.snapshotLocked()
	return &s, nil
}

func (f *fakeGateway) Get(context.Context, string) (*dto.SaleSessionResponse, error) {
	f.hit("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.snapshotLocked()
	return &s, nil
}

func (f *fakeGateway) applyAdd(productID string, qty int) dto.SaleSessionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for i := range f.lines {
		if f.lines[i].ProductID == productID {
			f.lines[i].Quantity += qty
			found = true
		}
	}
	if !found {
		f.lines = append(f.lines, dto.SaleLineResponse{ID: "l-" + productID, ProductID: productID, Quantity: qty})
	}
	f.version++
	return f.snapshotLocked()
}

func (f *fakeGateway) AddLine(_ context.Context, _ string, productID string, qty int) (*dto.LineMutationResponse, error) {
	f.hit("add")
	if !f.draft() {
		return nil, invalidTransition()
	}
	if f.onAdd != nil {
		if err := f.onAdd(productID); err != nil {
			if f.applyThenFail {
				f.applyAdd(productID, qty)
			}
			return nil, err
		}
	}
	s := f.applyAdd(productID, qty)
	return &dto.LineMutationResponse{Session: s}, nil
}

func (f *fakeGateway) UpdateLine(_ context.Context, _ string, lineID string, qty int) (*dto.LineMutationResponse, error) {
	f.hit("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			if qty == 0 {
				f.lines = append(f.lines[:i], f.lines[i+1:]...)
			} else {
				f.lines[i].Quantity = qty
			}
			f.version++
			return &dto.LineMutationResponse{Removed: qty == 0, Session: f.snapshotLocked()}, nil
		}
	}
	return nil, domain.ErrLineNotFound
}

func (f *fakeGateway) RemoveLine(ctx context.Context, saleID, lineID string) (*dto.LineMutationResponse, error) {
	return f.UpdateLine(ctx, saleID, lineID, 0)
}

func (f *fakeGateway) finalizeState() dto.SaleSessionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = entity.SaleStatusFinalized
	f.version++
	return f.snapshotLocked()
}

func (f *fakeGateway) Finalize(context.Context, string, dto.FinalizeRequest) (*dto.FinalizeResponse, error) {
	f.hit("finalize")
	if f.onFinalize != nil {
		if err := f.onFinalize(); err != nil {
			if f.applyThenFail {
				f.finalizeState()
			}
			return nil, err
		}
	}
	s := f.finalizeState()
	return &dto.FinalizeResponse{Status: s.Status, Session: s, LowStock: []dto.StockResponse{}}, nil
}

func (f *fakeGateway) cancelState() dto.SaleSessionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = entity.SaleStatusCancelled
	f.version++
	return f.snapshotLocked()
}

func (f *fakeGateway) Cancel(context.Context, string) (*dto.SaleSessionResponse, error) {
	f.hit("cancel")
	if !f.draft() {
		return nil, invalidTransition()
	}
	if f.onCancel != nil {
		if err := f.onCancel(); err != nil {
			if f.applyThenFail {
				f.cancelState()
			}
			return nil, err
		}
	}
	s := f.cancelState()
	return &s, nil
}

func netErr(op string) error {
	return &client.NetworkError{Op: op, Err: errors.New("i/o timeout")}
}

// ========== Validación local ==========

func TestController_ValidacionSinLlamadasDeRed(t *testing.T) {
	gw := newFakeGateway()
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	var ve *client.ValidationError
	_, err := c.AddLine(ctx, "", 1)
	require.ErrorAs(t, err, &ve)
	_, err = c.AddLine(ctx, "42", 0)
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = c.UpdateLine(ctx, "l-1", -1)
	require.ErrorAs(t, err, &ve)
	_, err = c.Finalize(ctx, "bitcoin", nil)
	require.ErrorAs(t, err, &ve)
	neg := decimal.NewFromInt(-1)
	_, err = c.Finalize(ctx, entity.PaymentCash, &neg)
	require.ErrorAs(t, err, &ve)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Empty(t, gw.calls, "la validación nunca llega al servidor")
	assert.Equal(t, client.PhaseIdle, c.Phase())
}

// ========== Apertura perezosa y proyección ==========

func TestController_AbreUnaSolaVezYFusiona(t *testing.T) {
	gw := newFakeGateway()
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, p := range []string{"42", "43", "44"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := c.AddLine(ctx, p, 1)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()
	assert.Equal(t, 1, gw.count("open"))

	proj, err := c.AddLine(ctx, "42", 2)
	require.NoError(t, err)
	assert.Equal(t, client.PhaseDrafting, c.Phase())
	assert.Equal(t, 3, proj.Len())
	l, ok := proj.LineByProduct("42")
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)

	proj, err = c.UpdateLine(ctx, "l-43", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, proj.Len())

	proj, err = c.RemoveLine(ctx, "l-44")
	require.NoError(t, err)
	assert.Equal(t, 1, proj.Len())

	_, err = c.RemoveLine(ctx, "l-44")
	assert.ErrorIs(t, err, domain.ErrLineNotFound, "línea que la proyección no conoce")
}

func TestController_FallaDeNegocioNoTocaProyeccion(t *testing.T) {
	gw := newFakeGateway()
	gw.onAdd = func(productID string) error {
		if productID == "46" {
			return domain.NewInsufficientStock(domain.StockShortage{ProductID: "46", Requested: 1, Available: 0})
		}
		return nil
	}
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	before, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	after, err := c.AddLine(ctx, "46", 1)
	var se *domain.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Shortages[0].Available)
	assert.Equal(t, before.Version(), after.Version())
	assert.Equal(t, before.Lines(), after.Lines())
	assert.Zero(t, gw.count("get"), "sin falla de red no se refresca")
}

// ========== Falla de red en mutaciones ==========

func TestController_FallaDeRedRefrescaYNoReintenta(t *testing.T) {
	gw := newFakeGateway()
	gw.applyThenFail = true
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	gw.onAdd = func(string) error { return netErr("add_line") }
	proj, err := c.AddLine(ctx, "43", 2)

	var ne *client.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.False(t, ne.Retryable, "una mutación nunca se reintenta sola")
	assert.Equal(t, "add_line", ne.Op)
	assert.Equal(t, 2, gw.count("add"), "un solo intento para 43")
	assert.Equal(t, 1, gw.count("get"))

	l, ok := proj.LineByProduct("43")
	require.True(t, ok, "la lectura posterior muestra lo que el servidor sí aplicó")
	assert.Equal(t, 2, l.Quantity)
}

// ========== Serialización por producto ==========

func TestController_SerializaPorProductoSinBloquearOtros(t *testing.T) {
	gw := newFakeGateway()
	gate := make(chan struct{})
	var (
		mu      sync.Mutex
		running = map[string]int{}
		maxSeen = map[string]int{}
		first   = true
	)
	gw.onAdd = func(productID string) error {
		mu.Lock()
		running[productID]++
		if running[productID] > maxSeen[productID] {
			maxSeen[productID] = running[productID]
		}
		block := productID == "A" && first
		if block {
			first = false
		}
		mu.Unlock()
		if block {
			<-gate
		} else {
			time.Sleep(2 * time.Millisecond)
		}
		mu.Lock()
		running[productID]--
		mu.Unlock()
		return nil
	}
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.AddLine(ctx, "A", 1)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return running["A"] == 1
	}, time.Second, time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := c.AddLine(ctx, "B", 1)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("B quedó bloqueado detrás de A")
	}

	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen["A"], "nunca dos mutaciones de A en vuelo")
	l, ok := c.Projection().LineByProduct("A")
	require.True(t, ok)
	assert.Equal(t, 5, l.Quantity)
}

// ========== Finalización ==========

func TestController_FinalizaYBloquea(t *testing.T) {
	gw := newFakeGateway()
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Finalize(ctx, entity.PaymentCard, nil)
	assert.ErrorIs(t, err, client.ErrNoSale)

	_, err = c.AddLine(ctx, "42", 1)
	require.NoError(t, err)
	assert.ErrorIs(t, c.NewSale(), client.ErrSaleActive)

	receipt, err := c.Finalize(ctx, entity.PaymentCard, nil)
	require.NoError(t, err)
	assert.Equal(t, "sale-1", receipt.SaleID)
	assert.Equal(t, client.PhaseFinalized, c.Phase())
	assert.Equal(t, entity.SaleStatusFinalized, c.Projection().Status())

	_, err = c.AddLine(ctx, "43", 1)
	assert.ErrorIs(t, err, client.ErrSaleLocked)
	_, err = c.Finalize(ctx, entity.PaymentCard, nil)
	assert.ErrorIs(t, err, client.ErrSaleLocked)
	assert.Equal(t, 1, gw.count("finalize"))

	require.NoError(t, c.NewSale())
	assert.Equal(t, client.PhaseIdle, c.Phase())
	_, err = c.AddLine(ctx, "43", 1)
	require.NoError(t, err)
	assert.Equal(t, "sale-2", c.SaleID(), "una venta nueva requiere un open nuevo")
}

func TestController_FinalizePendienteRechazaSegundoYMutaciones(t *testing.T) {
	gw := newFakeGateway()
	gate := make(chan struct{})
	gw.onFinalize = func() error {
		<-gate
		return nil
	}
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()
	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Finalize(ctx, entity.PaymentCash, nil)
		done <- err
	}()
	require.Eventually(t, func() bool { return c.Phase() == client.PhaseFinalizing }, time.Second, time.Millisecond)

	_, err = c.Finalize(ctx, entity.PaymentCash, nil)
	assert.ErrorIs(t, err, client.ErrFinalizePending)
	_, err = c.AddLine(ctx, "42", 1)
	assert.ErrorIs(t, err, client.ErrSaleLocked)
	assert.ErrorIs(t, c.NewSale(), client.ErrFinalizePending)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, client.PhaseFinalized, c.Phase())
	assert.Equal(t, 1, gw.count("finalize"))
}

func TestController_FinalizeDesconocidoSeResuelveConsultando(t *testing.T) {
	gw := newFakeGateway()
	gw.applyThenFail = true
	gw.onFinalize = func() error { return netErr("finalize") }
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()
	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	_, err = c.Finalize(ctx, entity.PaymentCard, nil)
	var ne *client.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.False(t, ne.Retryable)
	assert.Equal(t, client.PhaseFinalizeUnknown, c.Phase())

	_, err = c.Finalize(ctx, entity.PaymentCard, nil)
	assert.ErrorIs(t, err, client.ErrFinalizeOutcomeUnknown, "no se reintenta a ciegas")
	_, err = c.AddLine(ctx, "43", 1)
	assert.ErrorIs(t, err, client.ErrSaleLocked)
	assert.Equal(t, 1, gw.count("finalize"))

	phase, err := c.ResolveFinalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.PhaseFinalized, phase, "el servidor sí la finalizó")
	assert.Equal(t, 1, gw.count("finalize"))
}

func TestController_FinalizeDesconocidoQueSiguioEnBorrador(t *testing.T) {
	gw := newFakeGateway()
	calls := 0
	gw.onFinalize = func() error {
		calls++
		if calls == 1 {
			return netErr("finalize")
		}
		return nil
	}
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()
	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	_, err = c.Finalize(ctx, entity.PaymentCard, nil)
	require.Error(t, err)

	phase, err := c.ResolveFinalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.PhaseDrafting, phase)

	_, err = c.Finalize(ctx, entity.PaymentCard, nil)
	require.NoError(t, err, "tras resolver, el operador puede finalizar explícitamente")
	assert.Equal(t, client.PhaseFinalized, c.Phase())
}

func TestController_FinalizeSinStockVuelveABorrador(t *testing.T) {
	gw := newFakeGateway()
	gw.onFinalize = func() error {
		return domain.NewInsufficientStock(domain.StockShortage{ProductID: "42", Requested: 3, Available: 1})
	}
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()
	_, err := c.AddLine(ctx, "42", 3)
	require.NoError(t, err)

	_, err = c.Finalize(ctx, entity.PaymentCard, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, client.PhaseDrafting, c.Phase())

	_, err = c.UpdateLine(ctx, "l-42", 1)
	require.NoError(t, err, "el operador ajusta la cantidad y sigue")
}

func TestController_Cancel(t *testing.T) {
	gw := newFakeGateway()
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()

	assert.ErrorIs(t, c.Cancel(ctx), client.ErrNoSale)
	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	require.NoError(t, c.Cancel(ctx))
	assert.Equal(t, client.PhaseCancelled, c.Phase())
	_, err = c.AddLine(ctx, "42", 1)
	assert.ErrorIs(t, err, client.ErrSaleLocked)
	require.NoError(t, c.NewSale())
}

func TestController_CancelSinRespuestaAdoptaEstadoDelServidor(t *testing.T) {
	gw := newFakeGateway()
	gw.applyThenFail = true
	gw.onCancel = func() error { return netErr("cancel") }
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()
	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	err = c.Cancel(ctx)
	var ne *client.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.False(t, ne.Retryable)
	assert.Equal(t, "cancel", ne.Op)
	assert.Equal(t, 1, gw.count("get"), "tras la falla se relee la venta")
	assert.Equal(t, client.PhaseCancelled, c.Phase(), "el servidor sí la anuló")
	assert.Equal(t, entity.SaleStatusCancelled, c.Projection().Status())

	require.NoError(t, c.NewSale())
	_, err = c.AddLine(ctx, "42", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.count("open"), "la venta siguiente es una sesión nueva")
	assert.Equal(t, "sale-2", c.SaleID())
}

func TestController_CancelSinRespuestaQueNoSeAplico(t *testing.T) {
	gw := newFakeGateway()
	gw.onCancel = func() error { return netErr("cancel") }
	c := client.NewCheckoutController(gw, "1", nil)
	defer c.Close()
	ctx := context.Background()
	_, err := c.AddLine(ctx, "42", 1)
	require.NoError(t, err)

	require.Error(t, c.Cancel(ctx))
	assert.Equal(t, client.PhaseDrafting, c.Phase(), "sigue en borrador: el operador decide si repetir")
	assert.Equal(t, 1, gw.count("cancel"))
}

func TestController_VentaCerradaPorOtraCaja(t *testing.T) {
	tests := []struct {
		name   string
		status string
		act    func(ctx context.Context, c *client.CheckoutController) error
		want   client.Phase
	}{
		{
			name:   "agregar sobre venta finalizada",
			status: entity.SaleStatusFinalized,
			act: func(ctx context.Context, c *client.CheckoutController) error {
				_, err := c.AddLine(ctx, "43", 1)
				return err
			},
			want: client.PhaseFinalized,
		},
		{
			name:   "anular venta ya anulada",
			status: entity.SaleStatusCancelled,
			act:    func(ctx context.Context, c *client.CheckoutController) error { return c.Cancel(ctx) },
			want:   client.PhaseCancelled,
		},
		{
			name:   "anular venta finalizada",
			status: entity.SaleStatusFinalized,
			act:    func(ctx context.Context, c *client.CheckoutController) error { return c.Cancel(ctx) },
			want:   client.PhaseFinalized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			c := client.NewCheckoutController(gw, "1", nil)
			defer c.Close()
			ctx := context.Background()
			_, err := c.AddLine(ctx, "42", 1)
			require.NoError(t, err)

			gw.closeRemotely(tt.status)
			err = tt.act(ctx, c)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, tt.want, c.Phase())
			assert.Equal(t, tt.status, c.Projection().Status())

			_, err = c.AddLine(ctx, "42", 1)
			assert.ErrorIs(t, err, client.ErrSaleLocked, "sin más llamadas sobre la venta cerrada")
			require.NoError(t, c.NewSale())
			_, err = c.AddLine(ctx, "42", 1)
			require.NoError(t, err)
			assert.Equal(t, 2, gw.count("open"))
		})
	}
}
