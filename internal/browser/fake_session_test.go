package browser

import (
	"context"
	"os"
	"sync"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR translated")

// fakeSession records the calls a Driver makes and returns canned results.
type fakeSession struct {
	mu sync.Mutex

	openErr    error
	uploadErr  error
	uploadFn   func(ctx context.Context) error
	waitErr    error
	extractErr error
	blockWait  bool
	result     []byte
	screenshot []byte

	opened       bool
	uploadedPath string
	uploadedData []byte
	closed       bool
	shots        int
}

func newFakeSession() *fakeSession {
	return &fakeSession{result: pngBytes, screenshot: []byte("\x89PNG\r\n\x1a\nshot")}
}

func (f *fakeSession) Open(ctx context.Context, sourceLang, targetLang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	return f.openErr
}

func (f *fakeSession) Upload(ctx context.Context, path string) error {
	data, _ := os.ReadFile(path)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadedPath = path
	f.uploadedData = data
	if f.uploadFn != nil {
		return f.uploadFn(ctx)
	}
	return f.uploadErr
}

func (f *fakeSession) WaitForResult(ctx context.Context) (string, error) {
	if f.blockWait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.waitErr != nil {
		return "", f.waitErr
	}
	return "data:image/png;base64,AAAA", nil
}

func (f *fakeSession) Extract(ctx context.Context, src string) ([]byte, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.result, nil
}

func (f *fakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shots++
	return f.screenshot, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// factoryFor returns a SessionFactory handing out session and recording launch options.
func factoryFor(session Session, launched *[]LaunchOptions) SessionFactory {
	var mu sync.Mutex
	return func(ctx context.Context, opts LaunchOptions) (Session, error) {
		mu.Lock()
		defer mu.Unlock()
		if launched != nil {
			*launched = append(*launched, opts)
		}
		return session, nil
	}
}
