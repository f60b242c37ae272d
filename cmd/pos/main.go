package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/client"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/pkg/config"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

const help = `comandos:
  add <producto> <cantidad>        agrega o suma a la línea del producto
  set <línea> <cantidad>           cambia la cantidad (0 elimina la línea)
  rm <línea>                       elimina la línea
  pay <cash|card|transfer> [monto] finaliza la venta
  resolve                          consulta el resultado de un cobro sin respuesta
  cancel                           anula la venta en curso
  new                              empieza una venta nueva
  show                             muestra el carrito
  quit`

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:    cfg.App.Env,
		Level:  cfg.App.LogLevel,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := client.NewHTTPGateway(client.HTTPConfig{
		BaseURL:     cfg.Client.BaseURL,
		Token:       cfg.Client.Token,
		Timeout:     cfg.Client.RequestTimeout,
		ReadRetries: cfg.Client.ReadRetries,
		Log:         log,
	})

	branchID := cfg.Client.BranchID
	if cfg.Client.Token == "" {
		login, err := gw.Login(ctx, cfg.Client.Email, cfg.Client.Password)
		if err != nil {
			log.Fatal().Err(err).Str("email", cfg.Client.Email).Msg("inicio de sesión")
		}
		if branchID == "" {
			branchID = login.User.BranchID
		}
		log.Info().Str("user", login.User.Email).Str("branch_id", branchID).Msg("sesión iniciada")
	}
	if branchID == "" {
		me, err := gw.Me(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("consultar operador del token")
		}
		branchID = me.BranchID
	}

	ctrl := client.NewCheckoutController(gw, branchID, log)
	defer ctrl.Close()

	fmt.Println(help)
	run(ctx, ctrl, os.Stdin, os.Stdout)
}

// run lee comandos línea a línea hasta EOF, quit o cancelación del contexto.
func run(ctx context.Context, ctrl *client.CheckoutController, in io.Reader, out io.Writer) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "[%s] > ", ctrl.Phase())
		if !sc.Scan() || ctx.Err() != nil {
			return
		}
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return
		}
		if err := dispatch(ctx, ctrl, args, out); err != nil {
			fmt.Fprintln(out, describe(err))
		}
	}
}

func dispatch(ctx context.Context, ctrl *client.CheckoutController, args []string, out io.Writer) error {
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return errors.New("uso: add <producto> <cantidad>")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("cantidad inválida: %s", args[2])
		}
		proj, err := ctrl.AddLine(ctx, args[1], qty)
		if err != nil {
			return err
		}
		printCart(out, proj)
	case "set":
		if len(args) != 3 {
			return errors.New("uso: set <línea> <cantidad>")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("cantidad inválida: %s", args[2])
		}
		proj, err := ctrl.UpdateLine(ctx, args[1], qty)
		if err != nil {
			return err
		}
		printCart(out, proj)
	case "rm":
		if len(args) != 2 {
			return errors.New("uso: rm <línea>")
		}
		proj, err := ctrl.RemoveLine(ctx, args[1])
		if err != nil {
			return err
		}
		printCart(out, proj)
	case "pay":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("uso: pay <cash|card|transfer> [monto]")
		}
		var paid *decimal.Decimal
		if len(args) == 3 {
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("monto inválido: %s", args[2])
			}
			paid = &amount
		}
		receipt, err := ctrl.Finalize(ctx, args[1], paid)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "venta %s finalizada: total %s, cambio %s\n", receipt.SaleID, receipt.Total.StringFixed(2), receipt.ChangeDue.StringFixed(2))
		for _, s := range receipt.LowStock {
			fmt.Fprintf(out, "  stock bajo: producto %s quedan %d (mínimo %d)\n", s.ProductID, s.QuantityOnHand, s.MinimumThreshold)
		}
	case "resolve":
		phase, err := ctrl.ResolveFinalize(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "estado de la venta: %s\n", phase)
	case "cancel":
		if err := ctrl.Cancel(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "venta anulada")
	case "new":
		return ctrl.NewSale()
	case "show":
		printCart(out, ctrl.Projection())
	default:
		fmt.Fprintln(out, help)
	}
	return nil
}

func printCart(out io.Writer, p client.CartProjection) {
	if p.SaleID() == "" {
		fmt.Fprintln(out, "sin venta en curso")
		return
	}
	fmt.Fprintf(out, "venta %s (v%d, %s)\n", p.SaleID(), p.Version(), p.Status())
	for _, l := range p.Lines() {
		fmt.Fprintf(out, "  %-12s %-8s x%-4d %10s %10s\n", l.ID, l.ProductID, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(out, "  total %s\n", p.Total().StringFixed(2))
}

// describe traduce los errores del controlador a mensajes para el cajero.
func describe(err error) string {
	var se *domain.InsufficientStockError
	var ne *client.NetworkError
	switch {
	case errors.As(err, &se):
		return se.Error()
	case errors.Is(err, client.ErrFinalizeOutcomeUnknown), errors.As(err, &ne) && !ne.Retryable:
		return "sin respuesta del servidor: use 'resolve' o 'show' antes de repetir (" + err.Error() + ")"
	case errors.Is(err, client.ErrSaleLocked), errors.Is(err, domain.ErrInvalidTransition):
		return "la venta ya no admite cambios: use 'new'"
	default:
		return "error: " + err.Error()
	}
}
