package social

import (
	"context"
	"errors"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

// PendingSignUpKey guarda la ConnectionData de un sign-in sin usuario local
// mientras el usuario completa el registro.
const PendingSignUpKey = "social.pending_signup"

// ErrNoPendingSignUp: la sesión no tiene conexión pendiente.
var ErrNoPendingSignUp = errors.New("social: no pending sign up connection")

// SignInUtils completa el vínculo después del registro local.
type SignInUtils struct {
	registry *connect.Registry
	users    repository.UsersConnectionRepository
}

func NewSignInUtils(registry *connect.Registry, users repository.UsersConnectionRepository) *SignInUtils {
	return &SignInUtils{registry: registry, users: users}
}

// StashPending guarda conn en la sesión para después del signup.
func StashPending(sess SessionValues, conn connect.Connection) error {
	return sess.Set(PendingSignUpKey, conn.CreateData())
}

// ConnectionFromSession restaura la conexión pendiente; nil si no hay.
func (u *SignInUtils) ConnectionFromSession(sess SessionValues) (connect.Connection, error) {
	var d connect.ConnectionData
	ok, err := sess.Get(PendingSignUpKey, &d)
	if err != nil || !ok {
		return nil, err
	}
	return u.registry.Restore(d)
}

// DoPostSignUp vincula la conexión pendiente al usuario recién creado y la
// quita de la sesión.
func (u *SignInUtils) DoPostSignUp(ctx context.Context, sess SessionValues, userID string) error {
	conn, err := u.ConnectionFromSession(sess)
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrNoPendingSignUp
	}
	repo, err := u.users.CreateConnectionRepository(userID)
	if err != nil {
		return err
	}
	if err := repo.AddConnection(ctx, conn); err != nil {
		return err
	}
	sess.Delete(PendingSignUpKey)
	return nil
}
