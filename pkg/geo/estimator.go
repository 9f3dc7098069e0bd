package geo

import "context"

// Estimator resolves two free-form addresses and measures the great-circle
// distance between them.
type Estimator struct {
	client *Client
}

// NewEstimator wraps a geocoding client.
func NewEstimator(client *Client) *Estimator {
	return &Estimator{client: client}
}

// EstimateKilometers geocodes both addresses and returns the distance between
// them in kilometers.
func (e *Estimator) EstimateKilometers(ctx context.Context, fromAddress, toAddress string) (float64, error) {
	from, err := e.client.Geocode(ctx, fromAddress)
	if err != nil {
		return 0, err
	}
	to, err := e.client.Geocode(ctx, toAddress)
	if err != nil {
		return 0, err
	}
	return HaversineKilometers(*from, *to), nil
}
