package service

import (
	"context"
	"errors"
	"strings"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProfileService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewProfileService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *ProfileService {
	return &ProfileService{
		userRepo:   userRepo,
		followRepo: followRepo,
	}
}

type UpdateProfileInput struct {
	Username       *string
	Bio            *string
	UpiID          *string
	ProfilePicture *string
	SocialLinks    *domain.SocialLinks
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if input.Username != nil && *input.Username != user.Username {
		if len(*input.Username) < 3 || len(*input.Username) > 30 {
			return nil, &domain.ValidationError{Field: "username", Reason: "must be 3-30 characters"}
		}
		if existing, err := s.userRepo.GetByUsername(ctx, *input.Username); err == nil && existing != nil {
			return nil, domain.ErrUsernameTaken
		}
		user.Username = *input.Username
	}
	if input.Bio != nil {
		if len(*input.Bio) > 150 {
			return nil, &domain.ValidationError{Field: "bio", Reason: "exceeds maximum length"}
		}
		user.Bio = *input.Bio
	}
	if input.UpiID != nil {
		user.UpiID = *input.UpiID
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = *input.ProfilePicture
	}
	if input.SocialLinks != nil {
		user.SocialLinks = datatypes.NewJSONType(*input.SocialLinks)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserSummary is a user plus relationship data relative to a viewer.
type UserSummary struct {
	User           *domain.User `json:"user"`
	FollowersCount int64        `json:"followersCount"`
	FollowingCount int64        `json:"followingCount"`
	IsFollowing    bool         `json:"isFollowing"`
	IsFollower     bool         `json:"isFollower"`
}

func (s *ProfileService) Get(ctx context.Context, userID, viewerID uuid.UUID) (*UserSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return s.summarize(ctx, user, viewerID)
}

func (s *ProfileService) Search(ctx context.Context, query string, viewerID uuid.UUID, limit int) ([]*UserSummary, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, &domain.ValidationError{Field: "q", Reason: "must be at least 2 characters"}
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := s.userRepo.Search(ctx, query, viewerID, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]*UserSummary, 0, len(users))
	for _, user := range users {
		summary, err := s.summarize(ctx, user, viewerID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Follow records a directional edge: follower follows followee. Both sides
// of the relationship are derivable from the single edge row, so the
// invariant (A in B's followers iff B in A's following) holds by
// construction.
func (s *ProfileService) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return domain.ErrSelfFollow
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	exists, err := s.followRepo.Exists(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyFollowing
	}

	return s.followRepo.Create(ctx, &domain.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
	})
}

func (s *ProfileService) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return domain.ErrSelfFollow
	}

	exists, err := s.followRepo.Exists(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFollowing
	}

	return s.followRepo.Delete(ctx, followerID, followeeID)
}

func (s *ProfileService) Followers(ctx context.Context, userID uuid.UUID) ([]*domain.User, error) {
	return s.followRepo.Followers(ctx, userID)
}

func (s *ProfileService) Following(ctx context.Context, userID uuid.UUID) ([]*domain.User, error) {
	return s.followRepo.Following(ctx, userID)
}

func (s *ProfileService) summarize(ctx context.Context, user *domain.User, viewerID uuid.UUID) (*UserSummary, error) {
	followers, err := s.followRepo.CountFollowers(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	summary := &UserSummary{
		User:           user,
		FollowersCount: followers,
		FollowingCount: following,
	}
	if viewerID != uuid.Nil && viewerID != user.ID {
		if summary.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
		if summary.IsFollower, err = s.followRepo.Exists(ctx, user.ID, viewerID); err != nil {
			return nil, err
		}
	}
	return summary, nil
}
