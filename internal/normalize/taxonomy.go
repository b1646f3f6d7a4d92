package normalize

import (
	"github.com/bankclean/bankclean/internal/bank"
)

// directionLabels enumerates the raw transaction names known to move money
// into or out of an account.
var directionLabels = map[bank.Direction][]string{
	bank.Inflow: {
		"Pix - Recebido",
		"TED - Recebido",
		"DOC - Recebido",
		"Depósito em espécie",
		"Estorno de Debito",
		"Transferência entre CC - Crédito",
	},
	bank.Outflow: {
		"Saque",
		"Pix Saque",
		"Compra Débito",
		"Compra Crédito",
		"DOC - Realizado",
		"Pix - Realizado",
		"TED - Realizado",
		"Pagamento de boleto",
		"Transferência entre CC - Débito",
	},
}

// simplifiedLabels collapses raw transaction names into a reporting label.
var simplifiedLabels = map[string][]string{
	"Pix":                    {"Pix - Recebido", "Pix - Realizado"},
	"TED":                    {"TED - Recebido", "TED - Realizado"},
	"DOC":                    {"DOC - Recebido", "DOC - Realizado"},
	"Transferência entre CC": {"Transferência entre CC - Crédito", "Transferência entre CC - Débito"},
	"Depósito em espécie":    {"Depósito em espécie"},
	"Estorno de Debito":      {"Estorno de Debito"},
	"Saque":                  {"Saque"},
	"Pix Saque":              {"Pix Saque"},
	"Compra Débito":          {"Compra Débito"},
	"Compra Crédito":         {"Compra Crédito"},
	"Pagamento de boleto":    {"Pagamento de boleto"},
}

var (
	directionIndex = invert(directionLabels)
	labelIndex     = invert(simplifiedLabels)
)

func invert[K comparable](m map[K][]string) map[string]K {
	out := make(map[string]K)
	for k, names := range m {
		for _, n := range names {
			if _, dup := out[n]; dup {
				panic("normalize: transaction name " + n + " listed twice")
			}
			out[n] = k
		}
	}
	return out
}

// Categorize classifies a raw transaction name. Unknown names are bank.Other.
func Categorize(name string) bank.Direction {
	if d, ok := directionIndex[name]; ok {
		return d
	}
	return bank.Other
}

// Simplify maps a raw transaction name to its reporting label. Unknown names
// are bank.OtherLabel.
func Simplify(name string) string {
	if l, ok := labelIndex[name]; ok {
		return l
	}
	return bank.OtherLabel
}

// KnownTransactionNames returns every raw name present in the taxonomy.
func KnownTransactionNames() []string {
	var out []string
	for _, d := range []bank.Direction{bank.Inflow, bank.Outflow} {
		out = append(out, directionLabels[d]...)
	}
	return out
}
