package fake

import (
	"vizninja/domain/core"
	"vizninja/domain/dataset"
)

// SessionID is the id of the single fixture session.
const SessionID core.SessionID = "123e4567-e89b-12d3-a456-426614174000"

var columns = []string{"Age", "Income", "Spending", "Savings", "Credit Score"}

var sampleRows = [][]float64{
	{34, 65000, 48000, 17000, 720},
	{29, 48000, 40000, 8000, 680},
	{45, 89000, 60000, 29000, 790},
	{38, 72000, 52000, 20000, 750},
	{52, 120000, 85000, 35000, 820},
}

const cleanedCSV = "Age,Income,Spending,Savings,Credit Score\n34,65000,48000,17000,720\n29,48000,40000,8000,680\n"

func perColumn[T any](values ...T) map[string]T {
	out := make(map[string]T, len(columns))
	for i, c := range columns {
		out[c] = values[i]
	}
	return out
}

func uploadFixture() *dataset.UploadResult {
	rows := make([]dataset.Row, len(sampleRows))
	for i, values := range sampleRows {
		row := make(dataset.Row, len(columns))
		for j, c := range columns {
			row[c] = values[j]
		}
		rows[i] = row
	}
	return &dataset.UploadResult{
		SessionID: SessionID,
		Stats: dataset.UploadStats{
			Rows:          150,
			Columns:       len(columns),
			ColumnNames:   append([]string(nil), columns...),
			MissingValues: perColumn(2, 5, 3, 8, 4),
			DataTypes:     perColumn(dataset.TypeInt64, dataset.TypeInt64, dataset.TypeInt64, dataset.TypeInt64, dataset.TypeInt64),
			SampleData:    rows,
		},
		NumericFeatures:     append([]string(nil), columns...),
		CategoricalFeatures: []string{},
	}
}

func previewFixture() *dataset.Preview {
	data := make([][]interface{}, len(sampleRows))
	for i, values := range sampleRows {
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		data[i] = row
	}
	return &dataset.Preview{Columns: append([]string(nil), columns...), Data: data}
}

func summaryFixture() *dataset.Summary {
	return &dataset.Summary{
		Shape:         dataset.Shape{Rows: 150, Columns: len(columns)},
		MissingValues: perColumn(2, 5, 3, 8, 4),
		UniqueValues:  perColumn(42, 112, 98, 84, 45),
		DataTypes:     perColumn(dataset.TypeInt64, dataset.TypeInt64, dataset.TypeInt64, dataset.TypeInt64, dataset.TypeInt64),
		Statistics: perColumn(
			dataset.NumericStats{Mean: 37.5, Median: 36.0, Min: 22.0, Max: 68.0, Std: 10.2},
			dataset.NumericStats{Mean: 72400, Median: 68500, Min: 32000, Max: 150000, Std: 25300},
			dataset.NumericStats{Mean: 55300, Median: 52800, Min: 28000, Max: 120000, Std: 18700},
			dataset.NumericStats{Mean: 17100, Median: 15600, Min: 0, Max: 50000, Std: 12400},
			dataset.NumericStats{Mean: 732, Median: 740, Min: 580, Max: 850, Std: 65},
		),
	}
}

func regressionFixture(target string) *dataset.RegressionResult {
	return &dataset.RegressionResult{
		TargetVariable: target,
		ModelResults: dataset.ModelMetrics{
			MSE:         4235.67,
			R2:          0.87,
			NumFeatures: 4,
			NumSamples:  150,
			TestSize:    30,
		},
		FeatureImportance: dataset.FeatureImportanceBlock{
			Data: []dataset.FeatureImportance{
				{Feature: "Income", Importance: 0.65},
				{Feature: "Age", Importance: 0.42},
				{Feature: "Credit Score", Importance: 0.38},
				{Feature: "Spending", Importance: 0.31},
			},
		},
	}
}
