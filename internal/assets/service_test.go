package assets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/events"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	_, dbPair := setupTestDB(t)
	return NewService(dbPair, events.NewBus(), nil)
}

func TestUploadImage(t *testing.T) {
	service := setupTestService(t)

	id, err := service.UploadImage("shot.jpg", "image/jpeg", []byte("\xff\xd8\xffjpeg-bytes"))
	require.NoError(t, err)

	img, err := service.GetImage(id)
	require.NoError(t, err)
	require.Contains(t, img.Data, "data:image/jpeg;base64,")
	require.NotNil(t, img.Name)
	require.Equal(t, "shot.jpg", *img.Name)
}

func TestUploadImage_SniffsContentType(t *testing.T) {
	service := setupTestService(t)

	cases := []struct {
		content []byte
		want    string
	}{
		{[]byte("\x89PNG\r\n\x1a\npng-bytes"), "data:image/png;base64,"},
		{[]byte("\xff\xd8\xffjpeg-bytes"), "data:image/jpeg;base64,"},
		{[]byte("GIF89agif-bytes"), "data:image/gif;base64,"},
		{[]byte("RIFF\x00\x00\x00\x00WEBPwebp"), "data:image/webp;base64,"},
		{[]byte("unknown-bytes"), "data:image/png;base64,"},
	}

	for _, tc := range cases {
		id, err := service.UploadImage("", "", tc.content)
		require.NoError(t, err)

		img, err := service.GetImage(id)
		require.NoError(t, err)
		require.Contains(t, img.Data, tc.want)
	}
}

func TestUploadImage_RejectsEmpty(t *testing.T) {
	service := setupTestService(t)

	_, err := service.UploadImage("empty.png", "image/png", nil)
	require.Error(t, err)
}

func TestGetImage_NotFound(t *testing.T) {
	service := setupTestService(t)

	_, err := service.GetImage(42)
	require.Error(t, err)
}

func TestResolveDataURLs(t *testing.T) {
	service := setupTestService(t)

	first, err := service.UploadImage("a.png", "image/png", []byte("\x89PNG\r\n\x1a\na"))
	require.NoError(t, err)
	second, err := service.UploadImage("b.png", "image/png", []byte("\x89PNG\r\n\x1a\nb"))
	require.NoError(t, err)

	urls, err := service.ResolveDataURLs([]int64{first, second, 9999})
	require.NoError(t, err)
	require.Len(t, urls, 2)
	require.Contains(t, urls[first], "data:image/png;base64,")
}
