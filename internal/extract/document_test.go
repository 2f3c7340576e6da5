// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// article wraps body paragraphs and reference entries in a minimal JATS shell.
func article(body, refs string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE article PUBLIC "-//NLM//DTD JATS (Z39.96) Journal Archiving and Interchange DTD v1.2 20190208//EN" "JATS-archivearticle1.dtd">
<article article-type="research-article">
<front><article-meta><article-id pub-id-type="pmid">5555</article-id></article-meta></front>
<body><sec><title>Introduction</title>
` + body + `
</sec></body>
<back><ref-list><title>References</title>
` + refs + `
</ref-list></back>
</article>`
}

func ref(id, pmid string) string {
	return `<ref id="` + id + `"><element-citation publication-type="journal">` +
		`<article-title>Some title</article-title>` +
		`<pub-id pub-id-type="pmid">` + pmid + `</pub-id></element-citation></ref>`
}

func mustParse(t *testing.T, xml string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	return doc
}

func TestResolveReference_SingleEntry(t *testing.T) {
	doc := mustParse(t, article(`<p>Text.</p>`, ref("B1", "1000")+ref("B2", "2000")))

	res, err := doc.ResolveReference("1000")
	require.NoError(t, err)
	assert.Equal(t, "B1", res.Marker)
	assert.Equal(t, []string{"B1"}, res.Candidates)
	assert.False(t, res.Ambiguous())
}

func TestResolveReference_LastEntryWins(t *testing.T) {
	tests := []struct {
		name       string
		refs       string
		wantMarker string
		wantCands  []string
	}{
		{"B3 then B7", ref("B3", "1000") + ref("B5", "2000") + ref("B7", "1000"), "B7", []string{"B3", "B7"}},
		{"B7 then B3", ref("B7", "1000") + ref("B5", "2000") + ref("B3", "1000"), "B3", []string{"B7", "B3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, article(`<p>Text.</p>`, tt.refs))
			res, err := doc.ResolveReference("1000")
			require.NoError(t, err)
			assert.True(t, res.Ambiguous())
			assert.Equal(t, tt.wantMarker, res.Marker)
			assert.Equal(t, tt.wantCands, res.Candidates)
		})
	}
}

func TestResolveReference_NoEntry(t *testing.T) {
	doc := mustParse(t, article(`<p>Text.</p>`, ref("B1", "2000")))

	_, err := doc.ResolveReference("1000")
	assert.ErrorIs(t, err, ErrNoReference)
}

func TestResolveReference_TrimsWhitespace(t *testing.T) {
	doc := mustParse(t, article(`<p>Text.</p>`,
		`<ref id="B4"><mixed-citation><pub-id pub-id-type="pmid">
			1000
		</pub-id></mixed-citation></ref>`))

	res, err := doc.ResolveReference(" 1000 ")
	require.NoError(t, err)
	assert.Equal(t, "B4", res.Marker)
}

func TestResolveReference_DuplicatePubIDInOneEntry(t *testing.T) {
	doc := mustParse(t, article(`<p>Text.</p>`,
		`<ref id="B1"><citation-alternatives>`+
			`<element-citation><pub-id pub-id-type="pmid">1000</pub-id></element-citation>`+
			`</citation-alternatives></ref>`+
			`<ref id="B2"><mixed-citation><pub-id pub-id-type="pmid">1000</pub-id>`+
			`<pub-id pub-id-type="pmid">1000</pub-id></mixed-citation></ref>`))

	res, err := doc.ResolveReference("1000")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B2"}, res.Candidates)
	assert.Equal(t, "B2", res.Marker)
}

func TestResolveReference_GrandparentWithoutRef(t *testing.T) {
	doc := mustParse(t, article(`<p>Text.</p>`,
		`<list-item id="R9"><mixed-citation><pub-id pub-id-type="pmid">1000</pub-id></mixed-citation></list-item>`))

	res, err := doc.ResolveReference("1000")
	require.NoError(t, err)
	assert.Equal(t, "R9", res.Marker)
}

func TestResolveReference_EntryWithoutIDIgnored(t *testing.T) {
	doc := mustParse(t, article(`<p>Text.</p>`,
		`<ref><element-citation><pub-id pub-id-type="pmid">1000</pub-id></element-citation></ref>`))

	_, err := doc.ResolveReference("1000")
	assert.ErrorIs(t, err, ErrNoReference)
}

func TestPassages_SequenceFollowsCitingParagraphs(t *testing.T) {
	body := `<p>Background without citations.</p>
<p>First citing paragraph (<xref ref-type="bibr" rid="B1">1</xref>).</p>
<p>Cites someone else (<xref ref-type="bibr" rid="B2">2</xref>).</p>
<p>Another unrelated paragraph.</p>
<p>Second citing paragraph (<xref ref-type="bibr" rid="B1">1</xref>).</p>`
	doc := mustParse(t, article(body, ref("B1", "1000")+ref("B2", "2000")))

	passages, err := doc.Passages("B1")
	require.NoError(t, err)
	require.Len(t, passages, 2)

	assert.Equal(t, 0, passages[0].Seq)
	assert.Equal(t, "First citing paragraph (1).", passages[0].Text)
	assert.Equal(t, 1, passages[1].Seq)
	assert.Equal(t, "Second citing paragraph (1).", passages[1].Text)
	assert.Equal(t, []string{"1"}, passages[1].Markers)
}

func TestPassages_MultiValuedRid(t *testing.T) {
	body := `<p>Grouped citation [<xref ref-type="bibr" rid="B1 B2">1,2</xref>].</p>`
	doc := mustParse(t, article(body, ref("B1", "1000")+ref("B2", "2000")))

	passages, err := doc.Passages("B2")
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, []string{"1,2"}, passages[0].Markers)
}

func TestPassages_NestedMarkupFlattened(t *testing.T) {
	body := `<p>See <italic>in vivo</italic> data (<xref rid="B1"><sup>12</sup></xref>) and more.</p>`
	doc := mustParse(t, article(body, ref("B1", "1000")))

	passages, err := doc.Passages("B1")
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "See in vivo data (12) and more.", passages[0].Text)
	assert.Equal(t, []string{"12"}, passages[0].Markers)
}

func TestPassages_MarkerTextKeptLiterally(t *testing.T) {
	body := `<p>Padded marker<xref rid="B1"> [1] </xref>here.</p>`
	doc := mustParse(t, article(body, ref("B1", "1000")))

	passages, err := doc.Passages("B1")
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, []string{" [1] "}, passages[0].Markers)
	assert.Equal(t, "Padded marker [1] here.", passages[0].Text)
}

func TestPassages_NoCitingParagraph(t *testing.T) {
	doc := mustParse(t, article(`<p>Nothing (<xref rid="B2">2</xref>).</p>`, ref("B1", "1000")+ref("B2", "2000")))

	_, err := doc.Passages("B1")
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestParse_NamedEntities(t *testing.T) {
	doc := mustParse(t, article(`<p>Dose&nbsp;response (<xref rid="B1">1</xref>).</p>`, ref("B1", "1000")))

	passages, err := doc.Passages("B1")
	require.NoError(t, err)
	assert.Equal(t, "Dose\u00a0response (1).", passages[0].Text)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "article.nxml")
	require.NoError(t, os.WriteFile(path, []byte(article(`<p>x</p>`, ref("B1", "1000"))), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	res, err := doc.ResolveReference("1000")
	require.NoError(t, err)
	assert.Equal(t, "B1", res.Marker)

	_, err = ParseFile(filepath.Join(dir, "missing.nxml"))
	assert.Error(t, err)
}

func TestSelectLast(t *testing.T) {
	assert.Equal(t, "", SelectLast(nil))
	assert.Equal(t, "B1", SelectLast([]string{"B1"}))
	assert.Equal(t, "B9", SelectLast([]string{"B1", "B4", "B9"}))
}
