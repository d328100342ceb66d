package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeExprString(t *testing.T) {
	assert.Equal(t, "report.pdf", escapeExprString("report.pdf"))
	assert.Equal(t, `my \"file\".txt`, escapeExprString(`my "file".txt`))
	assert.Equal(t, `path\\to\\file`, escapeExprString(`path\to\file`))
	// 先转义反斜杠再转义引号，避免二次转义
	assert.Equal(t, `\\\"`, escapeExprString(`\"`))
	assert.Equal(t, "", escapeExprString(""))
}
