package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"onlearn-learner/internal/domain"
	"onlearn-learner/pkg/utils"
)

type authUsecase struct {
	lms    domain.LMSClient
	logger *zap.Logger
}

func NewAuthUsecase(lms domain.LMSClient, logger *zap.Logger) domain.AuthUsecase {
	return &authUsecase{lms: lms, logger: logger}
}

// Login forwards the credentials to the LMS and returns its token. A token
// without a learner identity is useless to every other endpoint and is refused.
func (uc *authUsecase) Login(ctx context.Context, input domain.LoginInput) (string, error) {
	token, err := uc.lms.Login(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLogin) {
			return "", domain.ErrInvalidLogin
		}
		return "", fmt.Errorf("login: %w", err)
	}

	learnerID, ok := utils.DecodeLearnerID(token)
	if !ok {
		uc.logger.Warn("login token carries no learner identity", zap.String("email", input.Email))
		return "", domain.ErrUnauthenticated
	}
	uc.logger.Info("learner logged in", zap.Uint("learner.id", learnerID))
	return token, nil
}
