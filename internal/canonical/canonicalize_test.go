package canonical_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfczx/legiurls/internal/canonical"
	"github.com/pfczx/legiurls/internal/fetcher"
	"github.com/pfczx/legiurls/internal/fetcher/fetchertest"
)

func newCanonicalizer(tr *fetchertest.Transport, opts ...canonical.Option) *canonical.Canonicalizer {
	cfg := fetcher.DefaultConfig()
	cfg.Retries = 0
	cfg.Backoff = time.Millisecond
	f := fetcher.New(cfg, fetcher.WithHTTPClient(tr.Client()))
	return canonical.New(f, opts...)
}

func TestCanonicalizeRules(t *testing.T) {
	tests := []struct {
		name     string
		inputURL string
		expected string
	}{
		{
			name:     "modern assemblee dossier from fragment",
			inputURL: "http://www.assemblee-nationale.fr/15/dossiers/le_nouveau_dossier.asp#deuxieme_partie",
			expected: "http://www.assemblee-nationale.fr/dyn/15/dossiers/deuxieme_partie",
		},
		{
			name:     "legacy assemblee dossier drops fragment",
			inputURL: "http://www.assemblee-nationale.fr/14/dossiers/le_dossier.asp#part",
			expected: "http://www.assemblee-nationale.fr/14/dossiers/le_dossier.asp",
		},
		{
			name:     "dyn dossier over https",
			inputURL: "https://www.assemblee-nationale.fr/dyn/16/dossiers/DLR5L16N46539",
			expected: "http://www.assemblee-nationale.fr/dyn/16/dossiers/DLR5L16N46539",
		},
		{
			name:     "assemblee pdf keeps its path",
			inputURL: "http://www.assemblee-nationale.fr/14/dossiers/motion_2097.pdf",
			expected: "http://www.assemblee-nationale.fr/14/dossiers/motion_2097.pdf",
		},
		{
			name:     "digits after asp",
			inputURL: "http://www.assemblee-nationale.fr/13/projets/pl2727.asp2727",
			expected: "http://www.assemblee-nationale.fr/13/projets/pl2727.asp",
		},
		{
			name:     "glued urls",
			inputURL: "pjl09-518.htmlhttp://www.assemblee-nationale.fr/13/ta/ta0518.asp",
			expected: "http://www.assemblee-nationale.fr/13/ta/ta0518.asp",
		},
		{
			name:     "glued https urls",
			inputURL: "https://www.senat.fr/leg/https://www.senat.fr/rap/l09-552/l09-552.html",
			expected: "https://www.senat.fr/rap/l09-552/l09-552.html",
		},
		{
			name:     "leg prefix",
			inputURL: "/leg/http://www.senat.fr/rap/l09-552/l09-552.html",
			expected: "https://www.senat.fr/rap/l09-552/l09-552.html",
		},
		{
			name:     "missing scheme",
			inputURL: "  www.senat.fr/rap/l09-552/l09-552.html\n",
			expected: "https://www.senat.fr/rap/l09-552/l09-552.html",
		},
		{
			name:     "legifrance cidTexte",
			inputURL: "http://legifrance.gouv.fr/affichTexte.do;jsessionid=ABC?cidTexte=JORFTEXT000000886460&dateTexte=20080101&fastPos=1",
			expected: "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=JORFTEXT000000886460&categorieLien=id",
		},
		{
			name:     "legifrance cidTexte not first",
			inputURL: "https://www.legifrance.gouv.fr/affichTexte.do?dateTexte=20080101&cidTexte=JORFTEXT000000886460&categorieLien=cid",
			expected: "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=JORFTEXT000000886460&categorieLien=id",
		},
		{
			name:     "legifrance pdf view",
			inputURL: "https://www.legifrance.gouv.fr/jo_pdf.do?id=JORFTEXT000000555555",
			expected: "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=JORFTEXT000000555555&categorieLien=id",
		},
		{
			name:     "legifrance relative display path",
			inputURL: "http://www.legifrance.gouv.fr/./affichTexte.do?cidTexte=LEGITEXT000006069577",
			expected: "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=LEGITEXT000006069577&categorieLien=id",
		},
		{
			name:     "senat legacy dossier segment",
			inputURL: "http://www.senat.fr/dossierleg/pjl08-499.html?foo=1#bar",
			expected: "https://www.senat.fr/dossier-legislatif/pjl08-499.html",
		},
		{
			name:     "senat parent traversal",
			inputURL: "http://www.senat.fr/leg/../dossier-legislatif/ppl09-123.html",
			expected: "https://www.senat.fr/dossier-legislatif/ppl09-123.html",
		},
		{
			name:     "senat duplicate slashes",
			inputURL: "http://www.senat.fr//rap//r17-001.html",
			expected: "https://www.senat.fr/rap/r17-001.html",
		},
		{
			name:     "senat non dossier keeps query",
			inputURL: "http://www.senat.fr/basile/visio.do?id=qSEQ1234",
			expected: "https://www.senat.fr/basile/visio.do?id=qSEQ1234",
		},
		{
			name:     "webdim alias",
			inputURL: "http://webdim/13/ta/ta0518.asp",
			expected: "http://www.assemblee-nationale.fr/13/ta/ta0518.asp",
		},
		{
			name:     "xtor fragment",
			inputURL: "https://www.senat.fr/presse/cp20180101.html#xtor=RSS-1",
			expected: "https://www.senat.fr/presse/cp20180101.html",
		},
		{
			name:     "modern assemblee dossier with xtor fragment",
			inputURL: "http://www.assemblee-nationale.fr/15/dossiers/alimentation.asp#xtor=RSS-1",
			expected: "http://www.assemblee-nationale.fr/dyn/15/dossiers/alimentation",
		},
		{
			name:     "legacy assemblee dossier with xtor fragment",
			inputURL: "https://www.assemblee-nationale.fr/14/dossiers/le_dossier.asp#xtor=RSS-1",
			expected: "http://www.assemblee-nationale.fr/14/dossiers/le_dossier.asp",
		},
		{
			name:     "legifrance with malformed escape",
			inputURL: "http://legifrance.gouv.fr/affichTexte.do%?cidTexte=JORFTEXT000000886460&x=1",
			expected: "https://www.legifrance.gouv.fr/affichTexte.do%?cidTexte=JORFTEXT000000886460&categorieLien=id",
		},
		{
			name:     "senat dossier with malformed escape",
			inputURL: "http://www.senat.fr//dossierleg/pjl08-499%.html?foo=1",
			expected: "https://www.senat.fr/dossier-legislatif/pjl08-499%.html",
		},
		{
			name:     "other fragment kept",
			inputURL: "https://www.senat.fr/rap/r17-001/r17-0011.html#toc3",
			expected: "https://www.senat.fr/rap/r17-001/r17-0011.html#toc3",
		},
		{
			name:     "unknown site forced to https",
			inputURL: "http://www.vie-publique.fr/loi/123.html",
			expected: "https://www.vie-publique.fr/loi/123.html",
		},
	}

	c := newCanonicalizer(fetchertest.New())
	ctx := context.Background()

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := c.Canonicalize(ctx, tc.inputURL)
			require.NoError(t, err)
			if actual != tc.expected {
				t.Errorf("Test %v - %s FAIL: expected URL: %v, actual: %v", i, tc.name, tc.expected, actual)
			}

			again, err := c.Canonicalize(ctx, actual)
			require.NoError(t, err)
			assert.Equal(t, actual, again, "canonical URLs are fixed points")
		})
	}
}

func TestCanonicalizeSenateDossierDropsQueryAndFragment(t *testing.T) {
	c := newCanonicalizer(fetchertest.New())
	for _, in := range []string{
		"https://www.senat.fr/dossier-legislatif/pjl17-001.html?idtable=1",
		"https://www.senat.fr/dossier-legislatif/pjl17-001.html#timeline-1",
		"http://senat.fr/dossier-legislatif/pjl17-001.html?a=b#c",
	} {
		got, err := c.Canonicalize(context.Background(), in)
		require.NoError(t, err)
		assert.NotContains(t, got, "?")
		assert.NotContains(t, got, "#")
	}
}

func TestCanonicalizeCouncilGluedOnSenate(t *testing.T) {
	const (
		glued     = "http://www.senat.fr/dossier-legislatif/www.conseil-constitutionnel.fr/decision/2012/2012646dc.htm"
		extracted = "http://www.conseil-constitutionnel.fr/decision/2012/2012646dc.htm"
		stable    = "https://www.conseil-constitutionnel.fr/decision/2012/2012646DC.htm"
	)
	tr := fetchertest.New().
		Handle(extracted, fetchertest.Page{Location: stable}).
		Handle(stable, fetchertest.Page{Body: "<h1>Décision n° 2012-646 DC</h1>"})
	c := newCanonicalizer(tr)

	got, err := c.Canonicalize(context.Background(), glued)
	require.NoError(t, err)
	assert.Equal(t, stable, got)

	again, err := c.Canonicalize(context.Background(), got)
	require.NoError(t, err)
	assert.Equal(t, stable, again)
}

func TestCanonicalizeFollowsLegifranceRedirect(t *testing.T) {
	const (
		legacy = "http://www.legifrance.gouv.fr/WAspad/UnTexteDeJorf?numjo=JUSX0000000L"
		target = "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=JORFTEXT000000123456&dateTexte=20000101"
	)
	tr := fetchertest.New().
		Handle(legacy, fetchertest.Page{Location: target}).
		Handle(target, fetchertest.Page{Body: "texte"})

	got, err := newCanonicalizer(tr).Canonicalize(context.Background(), legacy)
	require.NoError(t, err)
	assert.Equal(t, "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=JORFTEXT000000123456&categorieLien=id", got)
}

func TestCanonicalizeResolvesJournalOfficiel(t *testing.T) {
	const joURL = "https://www.legifrance.gouv.fr/eli/loi/2017/9/15/JUSC1715752L/jo/texte"
	tr := fetchertest.New().Handle(joURL, fetchertest.Page{
		Body: `<a href="./affichTexte.do?cidTexte=JORFTEXT000035567936&amp;dateTexte=20170916">JO</a>`,
	})

	got, err := newCanonicalizer(tr).Canonicalize(context.Background(), joURL)
	require.NoError(t, err)
	assert.Equal(t, "https://www.legifrance.gouv.fr/affichTexte.do?cidTexte=JORFTEXT000035567936&categorieLien=id", got)
}

func TestCanonicalizeUnresolvedJournalOfficielPassesThrough(t *testing.T) {
	const joURL = "http://legifrance.gouv.fr/eli/loi/2017/9/15/JUSC1715752L/jo/texte"
	tr := fetchertest.New().Handle(joURL, fetchertest.Page{Body: "<p>rien</p>"})

	got, err := newCanonicalizer(tr).Canonicalize(context.Background(), joURL)
	require.NoError(t, err)
	assert.Equal(t, "https://www.legifrance.gouv.fr/eli/loi/2017/9/15/JUSC1715752L/jo/texte", got)
}

func TestCanonicalizeStopsAfterMaxHops(t *testing.T) {
	const (
		a = "http://www.legifrance.gouv.fr/WAspad/a"
		b = "https://www.legifrance.gouv.fr/WAspad/b"
		c = "https://www.legifrance.gouv.fr/WAspad/c"
	)
	tr := fetchertest.New().
		Handle(a, fetchertest.Page{Location: b}).
		Handle(b, fetchertest.Page{Body: "b"}, fetchertest.Page{Location: c}).
		Handle(c, fetchertest.Page{Body: "c"})

	_, err := newCanonicalizer(tr, canonical.WithMaxHops(1)).Canonicalize(context.Background(), a)
	assert.ErrorIs(t, err, canonical.ErrTooManyHops)
}

func TestCanonicalizePropagatesFetchErrors(t *testing.T) {
	const legacy = "http://www.legifrance.gouv.fr/WAspad/UnTexteDeJorf?numjo=X"
	tr := fetchertest.New().Handle(legacy, fetchertest.Page{Status: fetchertest.Refused})

	_, err := newCanonicalizer(tr).Canonicalize(context.Background(), legacy)
	assert.ErrorIs(t, err, fetcher.ErrFetchFailed)
}
