package grpcserver

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

// publicMethods may be called without a bearer token.
var publicMethods = map[string]bool{
	FullMethod("Login"): true,
}

func needsAuth(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+ServiceName+"/") && !publicMethods[fullMethod]
}

// AuthUnary resolves the bearer token of portal calls into a collaborator
// stored in the context. Other services (health, reflection) pass through.
func (s *Server) AuthUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !needsAuth(info.FullMethod) {
			return next(ctx, req)
		}
		u, err := s.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return next(WithUser(ctx, u), req)
	}
}

// AuthStream is AuthUnary for streaming calls.
func (s *Server) AuthStream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) error {
		if !needsAuth(info.FullMethod) {
			return next(srv, ss)
		}
		u, err := s.authenticate(ss.Context())
		if err != nil {
			return err
		}
		return next(srv, &authStream{ServerStream: ss, ctx: WithUser(ss.Context(), u)})
	}
}

// authenticate verifies the token and loads its subject.
// A token for a user that no longer exists is rejected.
func (s *Server) authenticate(ctx context.Context) (*model.User, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := s.userIDFromToken(tok)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, status.Error(codes.Unauthenticated, "unknown user")
		}
		s.log.Warn("identity lookup failed", zap.Int64("user", id), zap.Error(err))
		return nil, toStatus("authenticate", err)
	}
	return u, nil
}

// userIDFromToken verifies an HS256 JWT and returns its subject as a user id.
func (s *Server) userIDFromToken(tok string) (int64, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return 0, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return 0, errors.New("token expired or not valid yet")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("bad subject")
	}
	return id, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}

// caller returns the collaborator placed in ctx by AuthUnary/AuthStream.
func caller(ctx context.Context) (*model.User, error) {
	u, ok := UserFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return u, nil
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, errs.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, errs.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, errs.ErrAlreadyExists):
		code = codes.AlreadyExists
	case errors.Is(err, errs.ErrUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, errs.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, errs.ErrRateLimited):
		code = codes.ResourceExhausted
	case errors.Is(err, errs.ErrImmutableField), errors.Is(err, errs.ErrRevoked):
		code = codes.FailedPrecondition
	case errors.Is(err, errs.ErrStoreClosed):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		return status.Errorf(codes.Internal, "%s: internal error", op)
	}
	return status.Errorf(code, "%s: %v", op, err)
}
