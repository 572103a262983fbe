package base

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseReadWrite(t *testing.T) {
	res := Response{
		StatusCode: StatusOK,
		Header: Header{
			"CSeq": HeaderValue{"4"},
		},
		Body: []byte("v=0\r\n"),
	}

	var buf bytes.Buffer
	err := res.Write(bufio.NewWriter(&buf))
	require.NoError(t, err)

	var decoded Response
	err = decoded.Read(bufio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	require.Equal(t, StatusOK, decoded.StatusCode)
	require.Equal(t, "OK", decoded.StatusMessage)
	require.Equal(t, res.Body, decoded.Body)
	cseq, ok := decoded.Header.Get("CSeq")
	require.True(t, ok)
	require.Equal(t, "4", cseq)
}

func TestResponseReadBadStartLine(t *testing.T) {
	var res Response
	err := res.Read(bufio.NewReader(bytes.NewReader([]byte("HTTP/1.1 200 OK\r\n\r\n"))))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadStartLine)
}
