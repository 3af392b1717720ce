package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/models"
)

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	c := BuildCorpus()
	sources, err := c.WriteFiles(dir)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	for _, name := range []string{"texto/cursos.txt", "texto/edital.docx", "vagas.xlsx", "tabelas.txt"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, models.KindText, sources[0].Kind)
	assert.Equal(t, models.KindTable, sources[1].Kind)
	assert.Equal(t, models.KindTable, sources[2].Kind)
}

func TestFixturesExtract(t *testing.T) {
	c := BuildCorpus()

	e := extract.NewExtractor()
	text, err := e.ExtractBytes(minimalDocx(c.DocxParas...), ".docx")
	require.NoError(t, err)
	assert.Equal(t, c.DocxParas[0]+"\n\n"+c.DocxParas[1]+"\n\n"+c.DocxParas[2], text)

	xlsx, err := minimalXlsx([][]string{{"Medicina", "30 vagas"}})
	require.NoError(t, err)
	text, err = e.ExtractBytes(xlsx, ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Medicina\t30 vagas", text)
}
