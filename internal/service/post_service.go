package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const defaultDraftTTL = 5 * time.Minute

type PostService struct {
	posts    repository.PostRepository
	drafts   repository.AutosaveRepository
	cache    *cache.Store
	draftTTL time.Duration
	flags    *featureflags.Manager
	now      func() time.Time
}

type CreatePostInput struct {
	Content    string
	CoverImage *string
}

// UpdatePostInput carries a partial update. A nil Content leaves the content
// alone; CoverImage distinguishes "not sent" from an explicit null.
type UpdatePostInput struct {
	PostID     string
	Content    *string
	CoverImage models.OptionalString
}

type AutosaveInput struct {
	Content    string
	CoverImage models.OptionalString
}

// draftEntry is the cached shape of a draft lookup. A nil Draft records that
// the user has none.
type draftEntry struct {
	Draft *models.Autosave `json:"draft"`
}

func NewPostService(
	posts repository.PostRepository,
	drafts repository.AutosaveRepository,
	store *cache.Store,
	draftTTL time.Duration,
) *PostService {
	if store == nil {
		store = cache.New(nil)
	}
	if draftTTL <= 0 {
		draftTTL = defaultDraftTTL
	}
	return &PostService{
		posts:    posts,
		drafts:   drafts,
		cache:    store,
		draftTTL: draftTTL,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// WithFlags lets feature flags gate the draft cache per user.
func (s *PostService) WithFlags(flags *featureflags.Manager) *PostService {
	s.flags = flags
	return s
}

// draftStore is the cache used for one user's draft reads. Writes always
// go through s.cache so flipping the flag never serves stale drafts.
func (s *PostService) draftStore(userID string) *cache.Store {
	if s.flags.EnabledOr(featureflags.DraftCache, userID, true) {
		return s.cache
	}
	return cache.New(nil)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func recordPostOp(op string, err error) {
	observability.PostOperations.WithLabelValues(op, observability.Outcome(err)).Inc()
}

func (s *PostService) Create(ctx context.Context, identity models.Identity, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Create", attribute.String("user.id", identity.UserID))
	defer func() {
		recordPostOp("create", err)
		observability.EndSpan(span, err)
	}()

	if isBlank(in.Content) {
		return nil, models.NewValidationError("content is required")
	}

	now := s.now()
	post = &models.Post{
		UserID:     identity.UserID,
		Content:    in.Content,
		CoverImage: models.NullIfEmpty(in.CoverImage),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// List returns every post the caller owns, most recently updated first.
func (s *PostService) List(ctx context.Context, identity models.Identity) (posts []*models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.List", attribute.String("user.id", identity.UserID))
	defer func() {
		recordPostOp("list", err)
		observability.EndSpan(span, err)
	}()

	posts, err = s.posts.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("posts.count", len(posts)))
	return posts, nil
}

// Update applies a partial update to a post the caller owns. Ownership is
// checked before the payload, so a foreign id always reads as not found.
// Supplied content must not be blank, unlike the permissive original API.
func (s *PostService) Update(ctx context.Context, identity models.Identity, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Update",
		attribute.String("user.id", identity.UserID),
		attribute.String("post.id", in.PostID),
	)
	defer func() {
		recordPostOp("update", err)
		observability.EndSpan(span, err)
	}()

	if _, err := s.posts.GetByIDForUser(ctx, in.PostID, identity.UserID); err != nil {
		return nil, err
	}

	if in.Content == nil && !in.CoverImage.Set {
		return nil, models.NewValidationError("no fields to update")
	}
	if in.Content != nil && isBlank(*in.Content) {
		return nil, models.NewValidationError("content is required")
	}

	updates := map[string]interface{}{"updated_at": s.now()}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.CoverImage.Set {
		updates["cover_image"] = models.NullIfEmpty(in.CoverImage.Value)
	}

	if err := s.posts.Update(ctx, in.PostID, identity.UserID, updates); err != nil {
		return nil, err
	}
	return s.posts.GetByIDForUser(ctx, in.PostID, identity.UserID)
}

// Remove deletes the caller's post. Unknown and foreign ids succeed too.
func (s *PostService) Remove(ctx context.Context, identity models.Identity, postID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Remove",
		attribute.String("user.id", identity.UserID),
		attribute.String("post.id", postID),
	)
	defer func() {
		recordPostOp("remove", err)
		observability.EndSpan(span, err)
	}()

	n, err := s.posts.Delete(ctx, postID, identity.UserID)
	if err != nil {
		return err
	}
	middleware.Logger.DebugContext(ctx, "post delete", slog.String("post_id", postID), slog.Int64("rows", n))
	return nil
}

// Autosave replaces the caller's draft. Blank content is accepted and ignored.
func (s *PostService) Autosave(ctx context.Context, identity models.Identity, in AutosaveInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Autosave", attribute.String("user.id", identity.UserID))
	defer func() {
		recordPostOp("autosave", err)
		observability.EndSpan(span, err)
	}()

	if isBlank(in.Content) {
		span.SetAttributes(attribute.Bool("autosave.skipped", true))
		return nil
	}

	draft := &models.Autosave{
		UserID:    identity.UserID,
		Content:   in.Content,
		CreatedAt: s.now(),
	}
	if in.CoverImage.Set {
		draft.CoverImage = models.NullIfEmpty(in.CoverImage.Value)
	}

	if err := s.drafts.Upsert(ctx, draft, in.CoverImage.Set); err != nil {
		return err
	}
	s.storeDraft(ctx, draft, in.CoverImage.Set)
	return nil
}

// storeDraft writes the saved draft through to the cache. A draft saved
// without a cover kept the stored one, so the merged row is read back first.
// Any failure falls back to invalidation.
func (s *PostService) storeDraft(ctx context.Context, draft *models.Autosave, replaceCover bool) {
	if !s.cache.Enabled() {
		return
	}
	key := cache.AutosaveKey(draft.UserID)
	if !replaceCover {
		stored, err := s.drafts.GetByUser(ctx, draft.UserID)
		if err != nil || stored == nil {
			s.cache.Invalidate(ctx, key)
			return
		}
		draft = stored
	}
	if err := s.cache.SetJSON(ctx, key, draftEntry{Draft: draft}, s.draftTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "draft cache write failed", slog.String("error", err.Error()))
		s.cache.Invalidate(ctx, key)
	}
}

// GetAutosave returns the caller's draft as a synthetic post, or nil.
func (s *PostService) GetAutosave(ctx context.Context, identity models.Identity) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.GetAutosave", attribute.String("user.id", identity.UserID))
	defer func() {
		recordPostOp("get_autosave", err)
		observability.EndSpan(span, err)
	}()

	store := s.draftStore(identity.UserID)
	var entry draftEntry
	hit, err := store.Aside(ctx, cache.AutosaveKey(identity.UserID), &entry, s.draftTTL, func() error {
		draft, err := s.drafts.GetByUser(ctx, identity.UserID)
		if err != nil {
			return err
		}
		entry.Draft = draft
		return nil
	})
	if err != nil {
		return nil, err
	}
	if store.Enabled() {
		result := "miss"
		if hit {
			result = "hit"
		}
		observability.DraftCacheLookups.WithLabelValues(result).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", hit))
	}

	if entry.Draft == nil {
		return nil, nil
	}
	return entry.Draft.AsPost(), nil
}
