package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stage-app/engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateCarPost(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	uid := st.seedUser(t, "ana@x.com")

	form := NewPostFormService(ctx, st.posts)
	t.Cleanup(form.Close)
	form.SetTitle(" BMW X5 ")
	form.SetDescription("one owner")
	form.SetPrice("10000")
	form.SetImages([]string{"a.jpg"})
	form.SetLocation("  ")
	form.SetMake("BMW")
	form.SetModel("X5")
	form.SetYear("2019")
	form.SetMileage("lots")
	form.SetVIN("WBA123")

	res := form.CreatePost(ctx, uid)
	require.True(t, res.IsSuccess(), res.Message)

	p, err := st.posts.GetByID(ctx, res.Value)
	require.NoError(t, err)
	assert.Equal(t, "BMW X5", p.Title)
	assert.Equal(t, models.CategoryCar, p.Category)
	assert.Equal(t, []string{"a.jpg"}, []string(p.Images))
	assert.Nil(t, p.Location)
	assert.True(t, p.IsActive)

	d, err := st.posts.GetCarDetails(ctx, res.Value)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "BMW", *d.Make)
	assert.Equal(t, 2019, *d.Year)
	assert.Nil(t, d.Mileage)

	form.ResetForm()
	assert.Equal(t, EmptyPostForm(), form.Form())
	form.ResetState()
	assert.True(t, form.State().Current().IsIdle())
}

func TestCreatePartsPostHasNoDetails(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	uid := st.seedUser(t, "ana@x.com")

	form := NewPostFormService(ctx, st.posts)
	t.Cleanup(form.Close)
	form.Fill(PostForm{Title: "Brake pad", Description: "new", Price: "50", Category: models.CategoryParts, Make: "ignored"})

	form.Submit(uid)
	require.Eventually(t, func() bool { return form.State().Current().IsSuccess() }, timeout, tick)

	d, err := st.posts.GetCarDetails(ctx, form.State().Current().Value)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestFormImagesCopy(t *testing.T) {
	form := NewPostFormService(context.Background(), new(mockPosts))
	t.Cleanup(form.Close)

	imgs := form.Form().Images
	require.NotNil(t, imgs)
	assert.Empty(t, imgs)

	src := []string{"a.jpg"}
	form.SetImages(src)
	src[0] = "changed.jpg"
	got := form.Form().Images
	assert.Equal(t, []string{"a.jpg"}, got)
	got[0] = "other.jpg"
	assert.Equal(t, []string{"a.jpg"}, form.Form().Images)

	form.SetImages([]string{})
	assert.NotNil(t, form.Form().Images)
	form.ResetForm()
	assert.Equal(t, EmptyPostForm(), form.Form())
}

func TestCreatePostValidation(t *testing.T) {
	ctx := context.Background()
	posts := new(mockPosts)
	form := NewPostFormService(ctx, posts)
	t.Cleanup(form.Close)

	form.Fill(PostForm{Title: "BMW", Description: "x", Price: "-1"})
	res := form.CreatePost(ctx, 1)
	require.True(t, res.IsError())
	assert.Equal(t, msgPriceInvalid, res.Message)
	posts.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePostRepositoryError(t *testing.T) {
	ctx := context.Background()
	posts := new(mockPosts)
	posts.On("CreatePost", mock.Anything, mock.AnythingOfType("*models.Post"), mock.AnythingOfType("*models.CarDetails")).
		Return(int64(0), errors.New("constraint failed"))

	form := NewPostFormService(ctx, posts)
	t.Cleanup(form.Close)
	form.Fill(PostForm{Title: "BMW", Description: "x", Price: "1"})

	res := form.CreatePost(ctx, 1)
	assert.Equal(t, "error creating post: constraint failed", res.Message)
	posts.AssertExpectations(t)
}
