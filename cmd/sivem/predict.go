package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/sivem-incident-service/internal/adapter/tabular"
	"github.com/couchcryptid/sivem-incident-service/internal/model"
)

func newPredictCmd(a *app) *cobra.Command {
	var data, out string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict every row of a wide table with the trained classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if data == "" {
				data = a.cfg.WidePath()
			}
			return a.predict(data, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "wide CSV to predict (default the processed wide table)")
	cmd.Flags().StringVar(&out, "out", "", "write the table with incident_pred and incident_proba columns here")
	return cmd
}

func (a *app) predict(data, out string, w io.Writer) error {
	m, err := model.Load(a.cfg.ModelPath)
	if err != nil {
		return a.fail("load model", err)
	}
	table, err := tabular.ReadFile(data)
	if err != nil {
		return a.fail("read data", err)
	}
	predicted, err := m.PredictTable(table, a.cfg.Schema)
	if err != nil {
		return a.fail("predict", err)
	}

	var written *string
	if out != "" {
		if err := tabular.WriteCSV(out, predicted); err != nil {
			return a.fail("write predictions", err)
		}
		written = &out
	}
	a.logger.Info("batch prediction complete", "rows", len(predicted.Rows), "data", data)

	return json.NewEncoder(w).Encode(map[string]any{
		"rows": len(predicted.Rows),
		"out":  written,
	})
}
