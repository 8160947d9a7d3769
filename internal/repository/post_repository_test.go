package repository

import (
	"context"
	"testing"

	"github.com/stage-app/engine/internal/models"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stretchr/testify/require"
)

// seedListings creates P1 (car), P2 (part) and an inactive P3, oldest first.
func seedListings(t *testing.T, ctx context.Context, posts PostRepository) (p1, p2, p3 int64) {
	t.Helper()
	var err error
	p3, err = posts.CreatePost(ctx, &models.Post{UserID: 1, Title: "Old wheel", Description: "sold", Price: 20, Category: models.CategoryParts}, nil)
	require.NoError(t, err)
	p1, err = posts.CreatePost(ctx, &models.Post{UserID: 1, Title: "BMW X5", Description: "diesel, 2018", Price: 10000, Category: models.CategoryCar},
		&models.CarDetails{Make: ptr("BMW"), Model: ptr("X5"), Year: ptr(2018)})
	require.NoError(t, err)
	p2, err = posts.CreatePost(ctx, &models.Post{UserID: 2, Title: "Brake pad", Description: "front axle", Price: 50, Category: models.CategoryParts}, nil)
	require.NoError(t, err)
	require.NoError(t, posts.DeactivatePost(ctx, p3))
	return p1, p2, p3
}

func TestPostQueries(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	posts := NewPostRepository(db, n)
	seedListings(t, ctx, posts)

	t.Run("active newest first", func(t *testing.T) {
		out, err := posts.ListActive(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"Brake pad", "BMW X5"}, titles(out))
	})

	t.Run("category", func(t *testing.T) {
		out, err := posts.ListByCategory(ctx, models.CategoryCar)
		require.NoError(t, err)
		require.Equal(t, []string{"BMW X5"}, titles(out))

		out, err = posts.ListByCategory(ctx, models.CategoryParts)
		require.NoError(t, err)
		require.Equal(t, []string{"Brake pad"}, titles(out))
	})

	t.Run("search ignores case", func(t *testing.T) {
		out, err := posts.Search(ctx, "BRAKE")
		require.NoError(t, err)
		require.Equal(t, []string{"Brake pad"}, titles(out))

		out, err = posts.Search(ctx, "diesel")
		require.NoError(t, err)
		require.Equal(t, []string{"BMW X5"}, titles(out))

		out, err = posts.Search(ctx, "100%")
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("price range ascending", func(t *testing.T) {
		out, err := posts.ListByPriceRange(ctx, 0, 100)
		require.NoError(t, err)
		require.Equal(t, []string{"Brake pad"}, titles(out))

		out, err = posts.ListByPriceRange(ctx, 50, 10000)
		require.NoError(t, err)
		require.Equal(t, []string{"Brake pad", "BMW X5"}, titles(out))
	})

	t.Run("user", func(t *testing.T) {
		out, err := posts.ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []string{"BMW X5"}, titles(out))

		all, err := posts.ListAllByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("counts", func(t *testing.T) {
		c, err := posts.CountActive(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, c)

		c, err = posts.CountByUser(ctx, 1)
		require.NoError(t, err)
		require.EqualValues(t, 1, c)

		c, err = posts.CountAllByUser(ctx, 1)
		require.NoError(t, err)
		require.EqualValues(t, 2, c)
	})
}

func TestCreatePostCarDetails(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	posts := NewPostRepository(db, n)
	details := NewCarDetailsRepository(db, n)

	t.Run("car with details", func(t *testing.T) {
		id, err := posts.CreatePost(ctx, &models.Post{UserID: 1, Title: "Golf", Description: "d", Price: 5000, Category: models.CategoryCar},
			&models.CarDetails{VIN: ptr("WVW123"), Mileage: ptr(120000)})
		require.NoError(t, err)

		d, err := posts.GetCarDetails(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, d)
		require.Equal(t, id, d.PostID)
		require.Equal(t, 120000, *d.Mileage)
	})

	t.Run("parts never get details", func(t *testing.T) {
		id, err := posts.CreatePost(ctx, &models.Post{UserID: 1, Title: "Mirror", Description: "d", Price: 80, Category: models.CategoryParts},
			&models.CarDetails{VIN: ptr("IGNORED")})
		require.NoError(t, err)

		d, err := posts.GetCarDetails(ctx, id)
		require.NoError(t, err)
		require.Nil(t, d)

		exists, err := details.ExistsByVIN(ctx, "IGNORED")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := posts.CreatePost(ctx, &models.Post{Title: "Free", Description: "d", Price: 0, Category: models.CategoryParts}, nil)
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

		_, err = posts.CreatePost(ctx, &models.Post{Title: "Boat", Description: "d", Price: 10, Category: "BOAT"}, nil)
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	})
}

func TestDeleteAndDeactivate(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	posts := NewPostRepository(db, n)
	details := NewCarDetailsRepository(db, n)
	p1, p2, _ := seedListings(t, ctx, posts)

	t.Run("deactivate keeps rows", func(t *testing.T) {
		require.NoError(t, posts.DeactivatePost(ctx, p2))

		p, err := posts.GetByID(ctx, p2)
		require.NoError(t, err)
		require.NotNil(t, p)
		require.False(t, p.IsActive)

		out, err := posts.Search(ctx, "brake")
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("delete cascades to details", func(t *testing.T) {
		p, err := posts.GetByID(ctx, p1)
		require.NoError(t, err)
		require.NoError(t, posts.DeletePost(ctx, p))

		gone, err := posts.GetByID(ctx, p1)
		require.NoError(t, err)
		require.Nil(t, gone)

		d, err := details.GetByPostID(ctx, p1)
		require.NoError(t, err)
		require.Nil(t, d)

		count, err := details.Count(ctx)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("missing post", func(t *testing.T) {
		err := posts.DeactivatePost(ctx, 999)
		require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

		err = posts.DeletePost(ctx, &models.Post{ID: 999, Category: models.CategoryParts})
		require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	})
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	posts := NewPostRepository(db, n)
	p1, _, _ := seedListings(t, ctx, posts)

	p, err := posts.GetByID(ctx, p1)
	require.NoError(t, err)
	p.Price = 9500
	p.Images = []string{"front.jpg", "back.jpg"}
	require.NoError(t, posts.UpdatePost(ctx, p, &models.CarDetails{Make: ptr("BMW"), Model: ptr("X5 M"), Year: ptr(2019)}))

	p, err = posts.GetByID(ctx, p1)
	require.NoError(t, err)
	require.Equal(t, 9500.0, p.Price)
	require.Equal(t, []string{"front.jpg", "back.jpg"}, []string(p.Images))

	d, err := posts.GetCarDetails(ctx, p1)
	require.NoError(t, err)
	require.Equal(t, "X5 M", *d.Model)
	require.Equal(t, 2019, *d.Year)

	err = posts.UpdatePost(ctx, &models.Post{ID: 999, Title: "x", Description: "y", Price: 1, Category: models.CategoryParts}, nil)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestWatchActiveSeesMutations(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	posts := NewPostRepository(db, n)

	stream := posts.WatchActive(ctx)
	defer stream.Close()

	p1, _, _ := seedListings(t, ctx, posts)
	require.Eventually(t, func() bool {
		r, ok := stream.Current()
		return ok && len(r.Value) == 2
	}, timeout, tick)

	require.NoError(t, posts.DeactivatePost(ctx, p1))
	require.Eventually(t, func() bool {
		r, _ := stream.Current()
		return len(r.Value) == 1 && r.Value[0].Title == "Brake pad"
	}, timeout, tick)
}

func TestCarDetailsQueries(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	posts := NewPostRepository(db, n)
	details := NewCarDetailsRepository(db, n)

	car := func(title string, d *models.CarDetails) {
		_, err := posts.CreatePost(ctx, &models.Post{UserID: 1, Title: title, Description: "d", Price: 1000, Category: models.CategoryCar}, d)
		require.NoError(t, err)
	}
	car("Golf", &models.CarDetails{VIN: ptr("VIN1"), Make: ptr("Volkswagen"), Model: ptr("Golf"), Year: ptr(2012), FuelType: ptr("Diesel"), Transmission: ptr("Manual")})
	car("Passat", &models.CarDetails{VIN: ptr("VIN2"), Make: ptr("Volkswagen"), Model: ptr("Passat"), Year: ptr(2016), FuelType: ptr("Petrol"), Transmission: ptr("Automatic")})
	car("Logan", &models.CarDetails{VIN: ptr("VIN3"), Make: ptr("Dacia"), Model: ptr("Logan"), Year: ptr(2020), FuelType: ptr("Diesel"), Transmission: ptr("Manual")})

	out, err := details.ListByMake(ctx, "volks")
	require.NoError(t, err)
	require.Len(t, out, 2)

	out, err = details.ListByModel(ctx, "gan")
	require.NoError(t, err)
	require.Len(t, out, 1)

	out, err = details.ListByYearRange(ctx, 2012, 2016)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 2016, *out[0].Year)

	out, err = details.ListByFuelType(ctx, "Diesel")
	require.NoError(t, err)
	require.Len(t, out, 2)

	out, err = details.ListByTransmission(ctx, "Automatic")
	require.NoError(t, err)
	require.Len(t, out, 1)

	d, err := details.GetByVIN(ctx, "VIN3")
	require.NoError(t, err)
	require.Equal(t, "Logan", *d.Model)

	d, err = details.GetByVIN(ctx, "NOPE")
	require.NoError(t, err)
	require.Nil(t, d)

	count, err := details.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}
