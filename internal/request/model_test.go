package request

import "testing"

func TestSituacaoValida(t *testing.T) {
	tests := []struct {
		name string
		sit  Situacao
		want bool
	}{
		{"pendente sem execucao", Situacao{Status: StatusPendente}, true},
		{"rejeitado sem execucao", Situacao{Status: StatusRejeitado}, true},
		{"aprovado em andamento", Situacao{Status: StatusAprovado, Execucao: ExecucaoEmAndamento}, true},
		{"aprovado concluido", Situacao{Status: StatusAprovado, Execucao: ExecucaoConcluido}, true},
		{"pendente com execucao", Situacao{Status: StatusPendente, Execucao: ExecucaoEmAndamento}, false},
		{"rejeitado com execucao", Situacao{Status: StatusRejeitado, Execucao: ExecucaoConcluido}, false},
		{"aprovado sem execucao", Situacao{Status: StatusAprovado}, false},
		{"status desconhecido", Situacao{Status: "cancelado"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sit.Valida(); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestSituacaoTerminal(t *testing.T) {
	tests := []struct {
		name string
		sit  Situacao
		want bool
	}{
		{"pendente", Situacao{Status: StatusPendente}, false},
		{"rejeitado", Situacao{Status: StatusRejeitado}, true},
		{"em andamento", Situacao{Status: StatusAprovado, Execucao: ExecucaoEmAndamento}, false},
		{"concluido", Situacao{Status: StatusAprovado, Execucao: ExecucaoConcluido}, true},
		{"nao realizado", Situacao{Status: StatusAprovado, Execucao: ExecucaoNaoRealizado}, true},
		{"paralisado", Situacao{Status: StatusAprovado, Execucao: ExecucaoParalisado}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sit.Terminal(); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestPodeAtualizarExecucao(t *testing.T) {
	emAndamento := Situacao{Status: StatusAprovado, Execucao: ExecucaoEmAndamento}

	for _, alvo := range []string{ExecucaoConcluido, ExecucaoNaoRealizado, ExecucaoParalisado} {
		if !emAndamento.PodeAtualizarExecucao(alvo) {
			t.Fatalf("em_andamento deveria aceitar %s", alvo)
		}
	}
	if emAndamento.PodeAtualizarExecucao(ExecucaoEmAndamento) {
		t.Fatal("em_andamento não é alvo válido")
	}

	// Encerrados não voltam para em_andamento nem mudam entre si.
	for _, exec := range finalizedExecutions {
		sit := Situacao{Status: StatusAprovado, Execucao: exec}
		if sit.PodeAtualizarExecucao(ExecucaoConcluido) {
			t.Fatalf("%s não deveria aceitar nova transição", exec)
		}
	}

	if (Situacao{Status: StatusPendente}).PodeAtualizarExecucao(ExecucaoConcluido) {
		t.Fatal("pendente não tem execução para atualizar")
	}
}

func TestExigeObservacao(t *testing.T) {
	if !ExigeObservacao(ExecucaoNaoRealizado) || !ExigeObservacao(ExecucaoParalisado) {
		t.Fatal("nao_realizado e paralisado exigem observação")
	}
	if ExigeObservacao(ExecucaoConcluido) {
		t.Fatal("concluido não exige observação")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	if got := NormalizeServiceType("  "); got != TipoOutro {
		t.Fatalf("expected %s got %s", TipoOutro, got)
	}
	if got := NormalizeServiceType(" Reparo "); got != TipoReparo {
		t.Fatalf("expected %s got %s", TipoReparo, got)
	}
	if got := NormalizeFilter(""); got != FiltroPendente {
		t.Fatalf("expected %s got %s", FiltroPendente, got)
	}
	if IsValidFilter("arquivado") {
		t.Fatal("filtro desconhecido aceito")
	}
}
