package siciliano

import (
	"errors"
	"reflect"
	"testing"

	"github.com/John-Robertt/bookmeta/internal/domain"
)

func TestParseListPage_Fixture(t *testing.T) {
	c := Config{BaseURL: "http://site.test"}
	stubs, skipped, err := c.ParseListPage(fixture(t, "search.html"))
	if err != nil {
		t.Fatalf("ParseListPage 失败：%v", err)
	}

	want := []domain.ResultStub{
		{
			Title:     "Dom Casmurro",
			Authors:   []string{"Machado de Assis"},
			Publisher: "Editora ática",
			DetailURL: "http://site.test/livro/dom-casmurro/1001",
		},
		{
			Title:     "Memórias Póstumas de Brás Cubas",
			Authors:   []string{"Machado de Assis", "João Silva"},
			Publisher: "Companhia das letras",
			DetailURL: "http://site.test/livro/memorias-postumas/1002",
		},
		{
			Title:     "Quincas Borba",
			Authors:   []string{"Machado de Assis"},
			Publisher: "Globo",
			DetailURL: "http://site.test/livro/quincas-borba/1004",
		},
	}
	if !reflect.DeepEqual(stubs, want) {
		t.Fatalf("stubs 不一致：\n期望 %#v\n实际 %#v", want, stubs)
	}

	// 4 个块中有 1 个缺少第二行：只跳过它，其余按页面顺序保留。
	if len(skipped) != 1 {
		t.Fatalf("期望 1 个被跳过的条目，实际 %d：%v", len(skipped), skipped)
	}
	var ie *ItemError
	if !errors.As(skipped[0], &ie) || ie.Index != 2 {
		t.Fatalf("期望跳过第 3 个块（Index=2），实际：%v", skipped[0])
	}
}

func TestParseListPage_Empty(t *testing.T) {
	stubs, skipped, err := Config{}.ParseListPage(fixture(t, "search_empty.html"))
	if err != nil {
		t.Fatalf("空列表页不应失败：%v", err)
	}
	if len(stubs) != 0 || len(skipped) != 0 {
		t.Fatalf("期望 0 条结果，实际 stubs=%d skipped=%d", len(stubs), len(skipped))
	}
}

func TestParseListPage_MalformedItems(t *testing.T) {
	page := `<html><body><table><tr>
<td><a href="/a"><span class="vitrine_nome_produto">1. Sem editora</span><br>Assis, Machado de</a>
<div class="pesquisa-item-lista-conteudo"></div></td>
<td><a href="/b"><span class="vitrine_nome_produto">2. Autor sem vírgula</span><br>Machado de Assis / GLOBO</a>
<div class="pesquisa-item-lista-conteudo"></div></td>
<td><span class="outra">3. Sem span de título</span>
<div class="pesquisa-item-lista-conteudo"></div></td>
<td><span class="vitrine_nome_produto">4. Sem link</span><br>Assis, Machado de / GLOBO
<div class="pesquisa-item-lista-conteudo"></div></td>
<td><a href="/e"><span class="vitrine_nome_produto">5. Válido</span><br>Assis, Machado de / GLOBO</a>
<div class="pesquisa-item-lista-conteudo"></div></td>
</tr></table></body></html>`

	stubs, skipped, err := Config{}.ParseListPage(latin1(t, page))
	if err != nil {
		t.Fatalf("ParseListPage 失败：%v", err)
	}
	if len(stubs) != 1 || stubs[0].Title != "Válido" {
		t.Fatalf("期望只剩 1 条有效结果，实际：%#v", stubs)
	}
	if len(skipped) != 4 {
		t.Fatalf("期望跳过 4 个条目，实际 %d：%v", len(skipped), skipped)
	}
}
