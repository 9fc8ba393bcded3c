package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock(t *testing.T) {
	tests := []struct {
		input string
		want  MockSpec
	}{
		{input: "GET /ping=pong", want: MockSpec{Method: "GET", Path: "/ping", Body: "pong", HasBody: true}},
		{input: "GET /ping", want: MockSpec{Method: "GET", Path: "/ping"}},
		{input: "get /ping", want: MockSpec{Method: "get", Path: "/ping"}},
		{input: "POST /submit={\"a\":1,\"b\":\"x=y\"}", want: MockSpec{Method: "POST", Path: "/submit", Body: "{\"a\":1,\"b\":\"x=y\"}", HasBody: true}},
		{input: "POST /say=hello world", want: MockSpec{Method: "POST", Path: "/say", Body: "hello world", HasBody: true}},
		{input: "DELETE /empty=", want: MockSpec{Method: "DELETE", Path: "/empty", HasBody: true}},
		{input: "GET /maps/api/geocode/json?address=Perth", want: MockSpec{Method: "GET", Path: "/maps/api/geocode/json?address=Perth"}},
		{input: "GET /search?q=a&page=2 ={\"hits\":[]}", want: MockSpec{Method: "GET", Path: "/search?q=a&page=2", Body: "{\"hits\":[]}", HasBody: true}},
		{input: "GET  /spaced  =x", want: MockSpec{Method: "GET", Path: "/spaced", Body: "x", HasBody: true}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Mock(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMockInvalid(t *testing.T) {
	for _, input := range []string{"", "GET", "/ping=pong", "GET /a /b", "GET =body", "GET /q?a=b body"} {
		_, err := Mock(input)
		assert.Error(t, err, input)
	}
}
