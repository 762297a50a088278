package llm

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.4 rest of the document")))
	assert.False(t, IsPDF([]byte("plain text upload")))
	assert.False(t, IsPDF(nil))
}

func TestExtractPDFText_RejectsUnreadableContent(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a pdf", data: []byte("just some text")},
		{name: "truncated header", data: []byte("%PDF-1.7\nbroken")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractPDFText(tc.data)
			require.Error(t, err)

			var gwErr *Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, KindUnprocessable, gwErr.Kind)
			assert.Equal(t, http.StatusUnprocessableEntity, gwErr.HTTPStatus())
			assert.Equal(t, "unable to read PDF content", gwErr.Message)
		})
	}
}
