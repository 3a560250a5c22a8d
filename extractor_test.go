package byujwt

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertionHeaders(t *testing.T) {
	testCases := []struct {
		name             string
		header           http.Header
		expectedOriginal string
		expectedCurrent  string
	}{
		{
			name:   "it returns empty strings when neither header is sent",
			header: http.Header{},
		},
		{
			name:            "it reads the current header",
			header:          http.Header{"X-Jwt-Assertion": []string{"current"}},
			expectedCurrent: "current",
		},
		{
			name: "it reads both headers",
			header: http.Header{
				"X-Jwt-Assertion":          []string{"current"},
				"X-Jwt-Assertion-Original": []string{"original"},
			},
			expectedOriginal: "original",
			expectedCurrent:  "current",
		},
		{
			name:            "it trims surrounding whitespace",
			header:          http.Header{"X-Jwt-Assertion": []string{"  current \t"}},
			expectedCurrent: "current",
		},
		{
			name:             "it matches header names case-insensitively",
			header:           HeaderFromMap(map[string][]string{"x-jwt-assertion-original": {"original"}, "x-jwt-assertion": {"current"}}),
			expectedOriginal: "original",
			expectedCurrent:  "current",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			original, current := AssertionHeaders(testCase.header)

			assert.Equal(t, testCase.expectedOriginal, original)
			assert.Equal(t, testCase.expectedCurrent, current)
		})
	}
}
