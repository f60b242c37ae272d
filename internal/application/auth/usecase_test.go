package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Ventas-api/internal/application/auth"
	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
	pkgjwt "github.com/jhoicas/Ventas-api/pkg/jwt"
)

const testSecret = "secreto-de-prueba"

func newAuth(t *testing.T, status string) *auth.AuthUseCase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("clave123"), bcrypt.MinCost)
	require.NoError(t, err)
	s := memory.NewStore()
	s.PutUser(entity.User{
		ID: "u-1", BranchID: "1", Email: "cajero@ventas.local", PasswordHash: string(hash),
		Name: "Cajero", Role: entity.RoleCajero, Status: status,
	})
	return auth.NewAuthUseCase(memory.NewUserRepository(s), auth.JWTConfig{Secret: testSecret, ExpMinutes: 60, Issuer: "test"})
}

func TestLogin_TokenConSucursalYRol(t *testing.T) {
	uc := newAuth(t, "active")
	out, err := uc.Login(context.Background(), dto.LoginRequest{Email: "cajero@ventas.local", Password: "clave123"})
	require.NoError(t, err)
	assert.Equal(t, "1", out.User.BranchID)

	claims, err := pkgjwt.Parse(testSecret, out.Token)
	require.NoError(t, err)
	cred := auth.FromClaims(claims)
	assert.Equal(t, auth.Credentials{UserID: "u-1", BranchID: "1", Role: entity.RoleCajero}, cred)
}

func TestLogin_Errores(t *testing.T) {
	ctx := context.Background()
	uc := newAuth(t, "active")

	_, err := uc.Login(ctx, dto.LoginRequest{Email: "cajero@ventas.local", Password: "mala"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@ventas.local", Password: "clave123"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	inactivo := newAuth(t, "suspended")
	_, err = inactivo.Login(ctx, dto.LoginRequest{Email: "cajero@ventas.local", Password: "clave123"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCredentials_Autorizacion(t *testing.T) {
	cajero := auth.Credentials{UserID: "u", BranchID: "1", Role: entity.RoleCajero}
	assert.NoError(t, cajero.AuthorizeSale("1"))
	assert.ErrorIs(t, cajero.AuthorizeSale("2"), domain.ErrForbidden)
	assert.ErrorIs(t, cajero.AuthorizeRestock("1"), domain.ErrForbidden)

	admin := auth.Credentials{UserID: "a", BranchID: "1", Role: entity.RoleAdmin}
	assert.NoError(t, admin.AuthorizeRestock("1"))
	assert.ErrorIs(t, auth.Credentials{}.AuthorizeSale("1"), domain.ErrUnauthorized)
}

func TestMe_OperadorDelToken(t *testing.T) {
	ctx := context.Background()
	uc := newAuth(t, "active")

	me, err := uc.Me(ctx, auth.Credentials{UserID: "u-1", BranchID: "1", Role: entity.RoleCajero})
	require.NoError(t, err)
	assert.Equal(t, "cajero@ventas.local", me.Email)
	assert.Equal(t, "1", me.BranchID)

	_, err = uc.Me(ctx, auth.Credentials{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Me(ctx, auth.Credentials{UserID: "u-x"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = newAuth(t, "inactive").Me(ctx, auth.Credentials{UserID: "u-1"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
