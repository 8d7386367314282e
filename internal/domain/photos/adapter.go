package photos

import (
	"fmt"
	"io"
	"mime/multipart"
	"sync"
)

// FromMultipart reads each uploaded file and encodes it into a Photo with a
// data URI payload. Files are read concurrently but the returned sequence
// preserves input order. Any single read failure fails the whole batch:
// locally captured photos come from the user's own machine, so a failure is
// input the user should correct rather than silently drop.
func FromMultipart(files []*multipart.FileHeader) ([]Photo, error) {
	result := make([]Photo, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			photo, err := encodeFile(fh)
			if err != nil {
				errs[i] = fmt.Errorf("file %q: %w", fh.Filename, err)
				return
			}
			result[i] = photo
		}(i, fh)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func encodeFile(fh *multipart.FileHeader) (Photo, error) {
	f, err := fh.Open()
	if err != nil {
		return Photo{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Photo{}, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return Photo{
		Name: fh.Filename,
		Type: mimeType,
		Data: EncodeDataURI(mimeType, data),
	}, nil
}
