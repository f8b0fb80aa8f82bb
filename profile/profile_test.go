package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/memo"
)

type fakeFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) ([]byte, error) {
	f.urls = append(f.urls, pageURL)
	return f.body, f.err
}

type fakeGenerator struct {
	response string
	prompts  []string
	err      error
}

func (f *fakeGenerator) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.response, FinishReason: "stop"}, nil
}

const profilePage = `<html><head><title>Priya Sharma</title></head><body>
<article>
<h1>Priya Sharma</h1>
<p>Co-founder and CEO at Acme Robotics. Previously product lead at BigCo for six years.
Studied computer science at IIT Bombay. Built and shipped three industrial automation
products. Speaks regularly at robotics conferences across India and Southeast Asia.
Holds two patents in warehouse automation and mentors early-stage hardware founders.</p>
</article>
</body></html>`

func TestFetchStructuresProfile(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(profilePage)}
	gen := &fakeGenerator{response: `{
		"name": "Priya Sharma",
		"headline": "Co-founder and CEO at Acme Robotics",
		"education": ["IIT Bombay, Computer Science"],
		"employment": ["CEO at Acme Robotics", "Product Lead at BigCo (6 years)"],
		"skills": ["robotics", "product"]
	}`}
	service := NewService(fetcher, gen, nil)

	p := service.Fetch(context.Background(), "Priya Sharma", "https://example.com/in/priya")
	require.NotNil(t, p)

	assert.Equal(t, StatusFetched, p.Status)
	assert.Equal(t, "Priya Sharma", p.Name)
	assert.Equal(t, "https://example.com/in/priya", p.SourceURL)
	assert.Contains(t, p.Employment, "Product Lead at BigCo (6 years)")
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Acme Robotics")
}

func TestFetchStubOnFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}
	gen := &fakeGenerator{}
	service := NewService(fetcher, gen, nil)

	p := service.Fetch(context.Background(), "Priya Sharma", "https://example.com/in/priya")

	assert.Equal(t, StatusUnavailable, p.Status)
	assert.Equal(t, "Priya Sharma", p.Name)
	assert.Empty(t, gen.prompts)
}

func TestFetchStubOnEmptyURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	service := NewService(fetcher, &fakeGenerator{}, nil)

	p := service.Fetch(context.Background(), "Priya Sharma", "")

	assert.Equal(t, StatusUnavailable, p.Status)
	assert.Empty(t, fetcher.urls)
}

func TestFetchStubOnUnparseableResponse(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(profilePage)}
	gen := &fakeGenerator{response: "I could not find a profile."}
	service := NewService(fetcher, gen, nil)

	p := service.Fetch(context.Background(), "Priya Sharma", "https://example.com/in/priya")

	assert.Equal(t, StatusUnavailable, p.Status)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://example.com/in/priya", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"https://127.0.0.1/admin", false},
		{"https://192.168.1.10/x", false},
		{"not a url://", false},
		{"https://", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFounderURLs(t *testing.T) {
	m := &memo.Memo1{
		FounderLinkedInURL: "https://example.com/in/priya",
		CompanyLinkedInURL: "Not specified",
	}
	assert.Equal(t, []string{"https://example.com/in/priya"}, FounderURLs(m))

	m.CompanyLinkedInURL = "https://example.com/company/acme"
	assert.Len(t, FounderURLs(m), 2)
}

func TestPrimaryFounder(t *testing.T) {
	m := &memo.Memo1{FounderName: memo.FlexStrings{"Priya Sharma", "Dev Patel"}}
	assert.Equal(t, "Priya Sharma", PrimaryFounder(m))
	assert.Empty(t, PrimaryFounder(&memo.Memo1{}))
}
