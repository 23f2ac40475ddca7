package ml

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/stat"

	"ecommerce-analytics/internal/models"
)

var clusterNames = []string{"High Value", "Loyal", "At Risk", "New", "Lost"}

type ClusterSummary struct {
	ClusterID    int     `json:"cluster_id"`
	ClusterName  string  `json:"cluster_name"`
	Size         int     `json:"size"`
	AvgMonetary  float64 `json:"avg_monetary"`
	AvgFrequency float64 `json:"avg_frequency"`
	AvgRecency   float64 `json:"avg_recency"`
}

type Clustering struct {
	NClusters      int              `json:"n_clusters"`
	TotalCustomers int              `json:"total_customers"`
	Clusters       []ClusterSummary `json:"clusters"`
}

// customerPoint is one standardized feature vector that remembers which
// customer it came from.
type customerPoint struct {
	coords clusters.Coordinates
	idx    int
}

func (p customerPoint) Coordinates() clusters.Coordinates { return p.coords }

func (p customerPoint) Distance(c clusters.Coordinates) float64 { return p.coords.Distance(c) }

// ClusterCustomers partitions customers with k-means over six standardized
// features: recency, frequency and monetary scores, age, order count and
// average order value. Clusters are ranked by average monetary score and
// named in that order, so "High Value" is always the richest group. Empty
// clusters are dropped.
func ClusterCustomers(customers []models.Customer, k int) (*Clustering, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 clusters", ErrInvalidArgument)
	}
	if len(customers) < k {
		return nil, fmt.Errorf("%w: %d customers for %d clusters", ErrInsufficientData, len(customers), k)
	}

	features := standardize(customerFeatures(customers))
	obs := make(clusters.Observations, len(customers))
	for i, f := range features {
		obs[i] = customerPoint{coords: f, idx: i}
	}

	parts, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("k-means: %w", err)
	}

	summaries := make([]ClusterSummary, 0, len(parts))
	for _, c := range parts {
		if len(c.Observations) == 0 {
			continue
		}
		var monetary, frequency, recency float64
		for _, o := range c.Observations {
			cust := customers[o.(customerPoint).idx]
			monetary += cust.MonetaryScore
			frequency += float64(cust.FrequencyScore)
			recency += float64(cust.RecencyScore)
		}
		n := float64(len(c.Observations))
		summaries = append(summaries, ClusterSummary{
			Size:         len(c.Observations),
			AvgMonetary:  round(monetary/n, 2),
			AvgFrequency: round(frequency/n, 2),
			AvgRecency:   round(recency/n, 2),
		})
	}

	slices.SortStableFunc(summaries, func(a, b ClusterSummary) int {
		return cmp.Compare(b.AvgMonetary, a.AvgMonetary)
	})
	for i := range summaries {
		summaries[i].ClusterID = i
		summaries[i].ClusterName = clusterName(i)
	}

	return &Clustering{
		NClusters:      k,
		TotalCustomers: len(customers),
		Clusters:       summaries,
	}, nil
}

func clusterName(i int) string {
	if i < len(clusterNames) {
		return clusterNames[i]
	}
	return fmt.Sprintf("Cluster %d", i)
}

func customerFeatures(customers []models.Customer) [][]float64 {
	out := make([][]float64, len(customers))
	for i, c := range customers {
		out[i] = []float64{
			float64(c.RecencyScore),
			float64(c.FrequencyScore),
			c.MonetaryScore,
			float64(c.Age),
			float64(c.TotalOrders),
			c.AvgOrderValue,
		}
	}
	return out
}

// standardize rescales each column to zero mean and unit population
// variance. Constant columns become zero.
func standardize(rows [][]float64) []clusters.Coordinates {
	out := make([]clusters.Coordinates, len(rows))
	for i := range rows {
		out[i] = make(clusters.Coordinates, len(rows[i]))
	}
	if len(rows) == 0 {
		return out
	}

	col := make([]float64, len(rows))
	for j := range rows[0] {
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		for i := range rows {
			if std > 0 {
				out[i][j] = (rows[i][j] - mean) / std
			}
		}
	}
	return out
}
