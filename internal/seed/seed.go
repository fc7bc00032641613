// Package seed creates demo data for local development. It goes through the
// services so seeded rows obey the same rules as API traffic.
package seed

import (
	"context"
	"fmt"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options describe the demo account.
type Options struct {
	Email     string
	Password  string
	Posts     int
	WithDraft bool
	// Seed fixes the faker seed; zero picks a random one.
	Seed int64
}

// Result reports what was written.
type Result struct {
	User  models.PublicUser
	Posts int
	Draft bool
}

// DefaultOptions is the account documented in the README.
func DefaultOptions() Options {
	return Options{
		Email:     "demo@inkwell.local",
		Password:  "password123",
		Posts:     5,
		WithDraft: true,
	}
}

// Demo registers (or logs into) the demo account and fills it with posts
// and a draft. Running it twice adds more posts to the same account.
func Demo(ctx context.Context, auth *service.AuthService, posts *service.PostService, opts Options) (*Result, error) {
	faker := gofakeit.New(opts.Seed)

	session, err := auth.Register(ctx, opts.Email, opts.Password)
	if models.IsCode(err, models.CodeAlreadyExists) {
		session, err = auth.Login(ctx, opts.Email, opts.Password)
	}
	if err != nil {
		return nil, fmt.Errorf("demo account: %w", err)
	}

	identity := models.Identity{UserID: session.User.ID, Email: session.User.Email}
	result := &Result{User: session.User}

	for i := 0; i < opts.Posts; i++ {
		in := service.CreatePostInput{Content: Paragraphs(faker, 2)}
		if i%2 == 0 {
			cover := CoverURL(faker)
			in.CoverImage = &cover
		}
		if _, err := posts.Create(ctx, identity, in); err != nil {
			return nil, fmt.Errorf("demo post %d: %w", i+1, err)
		}
		result.Posts++
	}

	if opts.WithDraft {
		err := posts.Autosave(ctx, identity, service.AutosaveInput{
			Content: "<p>" + faker.Sentence(12) + "</p>",
		})
		if err != nil {
			return nil, fmt.Errorf("demo draft: %w", err)
		}
		result.Draft = true
	}

	return result, nil
}

// Paragraphs renders n fake paragraphs as editor HTML.
func Paragraphs(faker *gofakeit.Faker, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "<p>" + faker.Paragraph(1, 4, 12, " ") + "</p>"
	}
	return out
}

// CoverURL returns a stable placeholder image URL.
func CoverURL(faker *gofakeit.Faker) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", faker.UUID())
}
