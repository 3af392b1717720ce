// Package e2e provides end-to-end tests that build an index from corpus files and answer over it.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kiku/internal/indexer"
	"github.com/hyperjump/kiku/internal/models"
)

// Corpus is a small admissions corpus: prose paragraphs split across a text file and a DOCX,
// plus table rows stored in an XLSX and a pre-linearized text file.
type Corpus struct {
	Paragraphs []string
	DocxParas  []string
	SheetRows  [][]string
	TableLines []string
}

// BuildCorpus returns the fixed corpus used by the end-to-end tests.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	topics := []string{"Medicina", "Direito", "Engenharia Civil", "Ciência da Computação", "Arquitetura", "Letras"}
	for i, t := range topics {
		c.Paragraphs = append(c.Paragraphs, fmt.Sprintf(
			"O curso de %s é oferecido no campus %d. A prova específica de %s acontece na segunda fase "+
				"e tem peso %d na nota final do candidato.", t, i+1, t, i%3+1))
		c.SheetRows = append(c.SheetRows, []string{t, fmt.Sprintf("%d vagas", 30+10*i), fmt.Sprintf("nota de corte %d", 600+15*i)})
		c.TableLines = append(c.TableLines, fmt.Sprintf("Para o curso de %s a taxa de inscrição é R$ %d,00", t, 150+5*i))
	}
	c.DocxParas = []string{
		"As inscrições para o vestibular abrem em agosto e encerram em setembro.",
		"Candidatos isentos devem enviar a documentação até o fim de julho.",
		"O resultado final é divulgado em janeiro no site oficial.",
	}
	return c
}

// WriteFiles writes the corpus under dir and returns the sources to build from.
func (c *Corpus) WriteFiles(dir string) ([]indexer.Source, error) {
	textDir := filepath.Join(dir, "texto")
	if err := os.MkdirAll(textDir, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(textDir, "cursos.txt"), []byte(strings.Join(c.Paragraphs, "\n\n")), 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(textDir, "edital.docx"), minimalDocx(c.DocxParas...), 0644); err != nil {
		return nil, err
	}
	xlsx, err := minimalXlsx(c.SheetRows)
	if err != nil {
		return nil, err
	}
	tablesXlsx := filepath.Join(dir, "vagas.xlsx")
	if err := os.WriteFile(tablesXlsx, xlsx, 0644); err != nil {
		return nil, err
	}
	tablesTxt := filepath.Join(dir, "tabelas.txt")
	if err := os.WriteFile(tablesTxt, []byte(strings.Join(c.TableLines, "\n")+"\n"), 0644); err != nil {
		return nil, err
	}
	return []indexer.Source{
		{Path: textDir, Kind: models.KindText},
		{Path: tablesXlsx, Kind: models.KindTable},
		{Path: tablesTxt, Kind: models.KindTable},
	}, nil
}

// TableChunks returns the expected table chunks in build order.
func (c *Corpus) TableChunks() []string {
	var out []string
	for _, row := range c.SheetRows {
		out = append(out, strings.Join(row, "\t"))
	}
	return append(out, c.TableLines...)
}
