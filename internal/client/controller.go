package client

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/sale"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Phase estado local del controlador de caja.
type Phase int

const (
	PhaseIdle            Phase = iota // sin venta abierta
	PhaseDrafting                     // venta en borrador
	PhaseFinalizing                   // finalización en vuelo
	PhaseFinalized                    // venta cerrada
	PhaseFinalizeUnknown              // la finalización falló por red: resolver consultando el estado
	PhaseCancelled                    // venta anulada
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDrafting:
		return "drafting"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseFinalized:
		return "finalized"
	case PhaseFinalizeUnknown:
		return "finalize_unknown"
	case PhaseCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Receipt resultado de una venta finalizada.
type Receipt struct {
	SaleID    string
	Total     decimal.Decimal
	ChangeDue decimal.Decimal
	LowStock  []dto.StockResponse
}

// CheckoutController orquesta la venta desde la caja: abre la sesión al primer producto, serializa
// las mutaciones por producto y reconstruye la proyección desde cada respuesta del servidor.
// Las mutaciones nunca se reintentan solas.
type CheckoutController struct {
	gw       Gateway
	branchID string
	log      *logger.Logger

	openMu sync.Mutex

	mu        sync.Mutex
	phase     Phase
	saleID    string
	proj      CartProjection
	mailboxes map[string]*mailbox
	inflight  sync.WaitGroup
}

// NewCheckoutController construye el controlador para la sucursal del operador.
func NewCheckoutController(gw Gateway, branchID string, log *logger.Logger) *CheckoutController {
	if log == nil {
		log = logger.Nop()
	}
	return &CheckoutController{
		gw:        gw,
		branchID:  branchID,
		log:       log,
		mailboxes: make(map[string]*mailbox),
	}
}

// Phase devuelve la fase actual.
func (c *CheckoutController) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Projection devuelve la última proyección confirmada.
func (c *CheckoutController) Projection() CartProjection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

// SaleID venta actual (vacío si no se abrió).
func (c *CheckoutController) SaleID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saleID
}

// AddLine agrega qty unidades del producto. Abre la venta si es la primera línea.
func (c *CheckoutController) AddLine(ctx context.Context, productID string, qty int) (CartProjection, error) {
	if productID == "" {
		return c.Projection(), &ValidationError{Field: "product_id", Reason: "es obligatorio"}
	}
	if qty <= 0 {
		return c.Projection(), &ValidationError{Field: "quantity", Reason: "debe ser mayor que cero"}
	}
	if err := c.admit(); err != nil {
		return c.Projection(), err
	}
	defer c.inflight.Done()

	saleID, err := c.ensureOpen(ctx)
	if err != nil {
		return c.Projection(), err
	}
	err = c.mailbox(productID).submit(ctx, func(ctx context.Context) error {
		if err := c.stillMutable(saleID); err != nil {
			return err
		}
		res, err := c.gw.AddLine(ctx, saleID, productID, qty)
		if err != nil {
			return c.afterMutationFailure(ctx, "add_line", saleID, err)
		}
		c.absorb(saleID, res.Session)
		return nil
	})
	return c.Projection(), err
}

// UpdateLine reemplaza la cantidad de la línea; 0 la elimina.
func (c *CheckoutController) UpdateLine(ctx context.Context, lineID string, qty int) (CartProjection, error) {
	if lineID == "" {
		return c.Projection(), &ValidationError{Field: "line_id", Reason: "es obligatorio"}
	}
	if qty < 0 {
		return c.Projection(), &ValidationError{Field: "quantity", Reason: "no puede ser negativa"}
	}
	return c.mutateLine(ctx, "update_line", lineID, func(ctx context.Context, saleID string) (*dto.LineMutationResponse, error) {
		return c.gw.UpdateLine(ctx, saleID, lineID, qty)
	})
}

// RemoveLine quita la línea. Se encola en el buzón del producto dueño de la línea.
func (c *CheckoutController) RemoveLine(ctx context.Context, lineID string) (CartProjection, error) {
	if lineID == "" {
		return c.Projection(), &ValidationError{Field: "line_id", Reason: "es obligatorio"}
	}
	return c.mutateLine(ctx, "remove_line", lineID, func(ctx context.Context, saleID string) (*dto.LineMutationResponse, error) {
		return c.gw.RemoveLine(ctx, saleID, lineID)
	})
}

func (c *CheckoutController) mutateLine(
	ctx context.Context,
	op, lineID string,
	call func(ctx context.Context, saleID string) (*dto.LineMutationResponse, error),
) (CartProjection, error) {
	if err := c.admit(); err != nil {
		return c.Projection(), err
	}
	defer c.inflight.Done()

	c.mu.Lock()
	saleID := c.saleID
	line, ok := c.proj.LineByID(lineID)
	c.mu.Unlock()
	if saleID == "" {
		return c.Projection(), ErrNoSale
	}
	if !ok {
		return c.Projection(), domain.ErrLineNotFound
	}

	err := c.mailbox(line.ProductID).submit(ctx, func(ctx context.Context) error {
		if err := c.stillMutable(saleID); err != nil {
			return err
		}
		res, err := call(ctx, saleID)
		if err != nil {
			return c.afterMutationFailure(ctx, op, saleID, err)
		}
		c.absorb(saleID, res.Session)
		return nil
	})
	return c.Projection(), err
}

// Finalize cierra la venta. Espera las mutaciones en vuelo y bloquea nuevas. Si la llamada falla
// por red el resultado queda desconocido hasta ResolveFinalize; nunca se reintenta sola.
func (c *CheckoutController) Finalize(ctx context.Context, paymentMethod string, amountPaid *decimal.Decimal) (*Receipt, error) {
	if !sale.IsSupportedPaymentMethod(paymentMethod) {
		return nil, &ValidationError{Field: "payment_method", Reason: "no soportado"}
	}
	if amountPaid != nil && amountPaid.IsNegative() {
		return nil, &ValidationError{Field: "amount_paid", Reason: "no puede ser negativo"}
	}

	c.mu.Lock()
	switch c.phase {
	case PhaseFinalizing:
		c.mu.Unlock()
		return nil, ErrFinalizePending
	case PhaseFinalizeUnknown:
		c.mu.Unlock()
		return nil, ErrFinalizeOutcomeUnknown
	case PhaseFinalized, PhaseCancelled:
		c.mu.Unlock()
		return nil, ErrSaleLocked
	case PhaseIdle:
		c.mu.Unlock()
		return nil, ErrNoSale
	}
	if c.proj.Len() == 0 {
		c.mu.Unlock()
		return nil, &ValidationError{Field: "lines", Reason: "la venta no tiene productos"}
	}
	c.phase = PhaseFinalizing
	saleID := c.saleID
	c.mu.Unlock()

	c.inflight.Wait()

	res, err := c.gw.Finalize(ctx, saleID, dto.FinalizeRequest{PaymentMethod: paymentMethod, AmountPaid: amountPaid})
	log := c.log.ForSale(saleID, c.branchID, "")
	if err != nil {
		switch {
		case isNetwork(err), errors.Is(err, domain.ErrFinalizeInProgress):
			c.setPhase(PhaseFinalizeUnknown)
			log.Warn().Err(err).Msg("resultado de finalización desconocido")
			if isNetwork(err) {
				var ne *NetworkError
				errors.As(err, &ne)
				return nil, &NetworkError{Op: "finalize", Err: ne.Err, Retryable: false}
			}
			return nil, err
		case errors.Is(err, domain.ErrInvalidTransition):
			// la venta ya no está en borrador en el servidor
			if _, rerr := c.resolveFrom(ctx, PhaseFinalizing); rerr != nil {
				c.setPhase(PhaseFinalizeUnknown)
			}
			return nil, err
		default:
			c.setPhase(PhaseDrafting)
			return nil, err
		}
	}

	c.mu.Lock()
	c.phase = PhaseFinalized
	if next, ok := c.proj.Apply(res.Session); ok {
		c.proj = next
	}
	c.mu.Unlock()
	log.Info().Str("total", res.Total.StringFixed(2)).Msg("venta finalizada")
	return &Receipt{SaleID: saleID, Total: res.Total, ChangeDue: res.ChangeDue, LowStock: res.LowStock}, nil
}

// ResolveFinalize consulta el estado de la venta tras una finalización de resultado desconocido.
// FINALIZED pasa a finalizada; DRAFT vuelve a borrador (se puede finalizar de nuevo).
func (c *CheckoutController) ResolveFinalize(ctx context.Context) (Phase, error) {
	return c.resolveFrom(ctx, PhaseFinalizeUnknown)
}

// resolveFrom resuelve solo si la fase actual es from; si no, devuelve la fase actual.
func (c *CheckoutController) resolveFrom(ctx context.Context, from Phase) (Phase, error) {
	c.mu.Lock()
	phase, saleID := c.phase, c.saleID
	c.mu.Unlock()
	if phase != from || saleID == "" {
		return phase, nil
	}
	snap, err := c.gw.Get(ctx, saleID)
	if err != nil {
		return phase, err
	}
	next := PhaseDrafting
	switch snap.Status {
	case entity.SaleStatusFinalized:
		next = PhaseFinalized
	case entity.SaleStatusCancelled:
		next = PhaseCancelled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saleID != saleID || c.phase != from {
		return c.phase, nil
	}
	c.phase = next
	if p, ok := c.proj.Apply(*snap); ok {
		c.proj = p
	}
	return next, nil
}

// Cancel anula la venta en borrador. Si la respuesta se pierde o el servidor ya la había cerrado,
// relee la venta y adopta su estado.
func (c *CheckoutController) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseDrafting {
		phase := c.phase
		c.mu.Unlock()
		if phase == PhaseIdle {
			return ErrNoSale
		}
		return ErrSaleLocked
	}
	saleID := c.saleID
	c.mu.Unlock()

	snap, err := c.gw.Cancel(ctx, saleID)
	if err != nil {
		return c.afterMutationFailure(ctx, "cancel", saleID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saleID == saleID {
		c.phase = PhaseCancelled
		if p, ok := c.proj.Apply(*snap); ok {
			c.proj = p
		}
	}
	return nil
}

// NewSale deja el controlador listo para otra venta. Solo después de finalizar o anular.
func (c *CheckoutController) NewSale() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseDrafting:
		return ErrSaleActive
	case PhaseFinalizing:
		return ErrFinalizePending
	case PhaseFinalizeUnknown:
		return ErrFinalizeOutcomeUnknown
	}
	c.resetLocked()
	return nil
}

// Close detiene las goroutines de los buzones.
func (c *CheckoutController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, mb := range c.mailboxes {
		mb.close()
		delete(c.mailboxes, id)
	}
}

func (c *CheckoutController) resetLocked() {
	for id, mb := range c.mailboxes {
		mb.close()
		delete(c.mailboxes, id)
	}
	c.phase = PhaseIdle
	c.saleID = ""
	c.proj = CartProjection{}
}

// admit registra una mutación en vuelo si la fase lo permite.
func (c *CheckoutController) admit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mutableLocked(); err != nil {
		return err
	}
	c.inflight.Add(1)
	return nil
}

func (c *CheckoutController) mutableLocked() error {
	switch c.phase {
	case PhaseFinalizing, PhaseFinalizeUnknown, PhaseFinalized, PhaseCancelled:
		return ErrSaleLocked
	}
	return nil
}

func (c *CheckoutController) stillMutable(saleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saleID != saleID {
		return ErrSaleLocked
	}
	return c.mutableLocked()
}

// ensureOpen abre la venta una sola vez aunque lleguen varios primeros productos a la vez.
func (c *CheckoutController) ensureOpen(ctx context.Context) (string, error) {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	c.mu.Lock()
	saleID := c.saleID
	c.mu.Unlock()
	if saleID != "" {
		return saleID, nil
	}

	snap, err := c.gw.Open(ctx, c.branchID)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saleID = snap.ID
	c.phase = PhaseDrafting
	c.proj = ProjectionFrom(*snap)
	c.log.ForSale(snap.ID, c.branchID, snap.OperatorID).Debug().Msg("venta abierta")
	return snap.ID, nil
}

func (c *CheckoutController) mailbox(productID string) *mailbox {
	c.mu.Lock()
	defer c.mu.Unlock()
	mb, ok := c.mailboxes[productID]
	if !ok {
		mb = newMailbox()
		c.mailboxes[productID] = mb
	}
	return mb
}

// absorb reemplaza la proyección con el snapshot si sigue siendo la misma venta y no es más viejo.
func (c *CheckoutController) absorb(saleID string, snap dto.SaleSessionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saleID != saleID {
		return
	}
	next, ok := c.proj.Apply(snap)
	if !ok {
		c.log.Debug().Str("sale_id", saleID).Int("version", snap.Version).Int("current", c.proj.Version()).Msg("snapshot viejo descartado")
		return
	}
	c.proj = next
}

// afterMutationFailure: ante falla de red refresca la venta con una lectura y devuelve
// un NetworkError no reintentable; el operador decide si repetir. INVALID_TRANSITION significa
// que la venta ya no está en borrador en el servidor (anulada u otra caja la cerró): también se relee.
func (c *CheckoutController) afterMutationFailure(ctx context.Context, op, saleID string, err error) error {
	var ne *NetworkError
	switch {
	case errors.As(err, &ne):
		c.reconcile(ctx, saleID)
		return &NetworkError{Op: op, Err: ne.Err, Retryable: false}
	case errors.Is(err, domain.ErrInvalidTransition):
		c.reconcile(ctx, saleID)
	}
	return err
}

// reconcile relee la venta, absorbe el snapshot y, si la caja seguía en borrador, adopta el estado
// terminal del servidor para que el operador pueda empezar otra venta.
func (c *CheckoutController) reconcile(ctx context.Context, saleID string) {
	snap, err := c.gw.Get(ctx, saleID)
	if err != nil {
		c.log.Warn().Err(err).Str("sale_id", saleID).Msg("no se pudo refrescar la venta")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saleID != saleID {
		return
	}
	if next, ok := c.proj.Apply(*snap); ok {
		c.proj = next
	}
	if c.phase != PhaseDrafting {
		return
	}
	switch snap.Status {
	case entity.SaleStatusFinalized:
		c.phase = PhaseFinalized
	case entity.SaleStatusCancelled:
		c.phase = PhaseCancelled
	default:
		return
	}
	c.log.ForSale(saleID, c.branchID, snap.OperatorID).Info().Str("status", snap.Status).Msg("venta cerrada en el servidor")
}

func (c *CheckoutController) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}
