package service

import (
	"fmt"

	"github.com/jeevanjiji/websphere-final/internal/auth/domain"
	"github.com/jeevanjiji/websphere-final/internal/auth/repository"
)

type AuthService struct {
	userRepo *repository.UserRepository
}

func NewAuthService(userRepo *repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// GetUserByFirebaseUID retrieves a user by Firebase UID
func (s *AuthService) GetUserByFirebaseUID(uid string) (*domain.User, error) {
	return s.userRepo.GetByFirebaseUID(uid)
}

// SyncUser creates or updates a user from Firebase Auth data. The role
// is chosen at signup and kept afterwards; it is never silently changed
// by a later sync.
func (s *AuthService) SyncUser(req *domain.CreateUserRequest) (*domain.User, error) {
	if req.Role != "" && !domain.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}

	existingUser, err := s.userRepo.GetByFirebaseUID(req.FirebaseUID)
	if err == nil && existingUser != nil {
		if req.DisplayName != nil {
			existingUser.DisplayName = req.DisplayName
		}
		if req.PhotoURL != nil {
			existingUser.PhotoURL = req.PhotoURL
		}
		if req.Bio != nil {
			existingUser.Bio = req.Bio
		}
		if len(req.Preferences) > 0 {
			if existingUser.Preferences == nil {
				existingUser.Preferences = make(map[string]interface{})
			}
			for k, v := range req.Preferences {
				existingUser.Preferences[k] = v
			}
		}

		if err := s.userRepo.Update(existingUser); err != nil {
			return nil, err
		}
		return existingUser, nil
	}

	user := &domain.User{
		FirebaseUID: req.FirebaseUID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Bio:         req.Bio,
		Role:        req.Role,
		Preferences: make(map[string]interface{}),
	}

	if user.Role == "" {
		user.Role = domain.RoleFreelancer
	}

	if req.Preferences != nil {
		user.Preferences = req.Preferences
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser updates user information
func (s *AuthService) UpdateUser(uid string, req *domain.UpdateUserRequest) (*domain.User, error) {
	user, err := s.userRepo.GetByFirebaseUID(uid)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.PhotoURL != nil {
		user.PhotoURL = req.PhotoURL
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if len(req.Preferences) > 0 {
		if user.Preferences == nil {
			user.Preferences = make(map[string]interface{})
		}
		for k, v := range req.Preferences {
			user.Preferences[k] = v
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return user, nil
}

// RecordLogin updates the last login timestamp
func (s *AuthService) RecordLogin(uid string) error {
	return s.userRepo.UpdateLastLogin(uid)
}
