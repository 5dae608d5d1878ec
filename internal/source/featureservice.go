package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/types"
)

// maxErrorBody caps how much of a non-JSON error response is kept.
const maxErrorBody = 512

// FeatureService reads layers through the ArcGIS REST query endpoint.
type FeatureService struct {
	client   *http.Client
	token    string
	pageSize int
	check    config.CheckConfig
	log      *logger.Logger
}

// NewFeatureService creates a feature service source for one check.
func NewFeatureService(client *http.Client, cfg config.FeatureServiceConfig, check config.CheckConfig, log *logger.Logger) *FeatureService {
	if client == nil {
		client = &http.Client{}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 2000
	}
	return &FeatureService{
		client:   client,
		token:    cfg.Token,
		pageSize: pageSize,
		check:    check,
		log:      log,
	}
}

type serviceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *serviceError) Error() string {
	msg := fmt.Sprintf("service error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

type queryResponse struct {
	Features []struct {
		Attributes map[string]interface{} `json:"attributes"`
	} `json:"features"`
	ExceededTransferLimit bool          `json:"exceededTransferLimit"`
	Error                 *serviceError `json:"error"`
}

// FetchParentIDs returns the parent layer's identifiers. Null identifiers are skipped.
func (f *FeatureService) FetchParentIDs(ctx context.Context) (types.ParentIDSet, error) {
	p := f.check.Parent
	ids := types.NewParentIDSet()

	err := f.query(ctx, p.Layer, p.Where, []string{p.IDField}, p.IDField, func(attrs map[string]interface{}) error {
		if id := types.ToString(attribute(attrs, p.IDField)); id != "" {
			ids.Add(id)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("fetch parent ids", err)
	}
	return ids, nil
}

// FetchChildren returns the child layer's records in object ID order.
func (f *FeatureService) FetchChildren(ctx context.Context) ([]types.ChildRecord, error) {
	c := f.check.Child
	var children []types.ChildRecord

	err := f.query(ctx, c.Layer, c.Where, c.Fields(), c.ObjectIDField, func(attrs map[string]interface{}) error {
		rec, err := childFromValues(c,
			attribute(attrs, c.ObjectIDField),
			attribute(attrs, c.DateField),
			attribute(attrs, c.ParentField),
			attribute(attrs, c.CreatorField),
			attribute(attrs, c.CompanyField),
		)
		if err != nil {
			return err
		}
		children = append(children, rec)
		return nil
	})
	if err != nil {
		return nil, unavailable("fetch children", err)
	}
	return children, nil
}

// Ping fetches the metadata of both layers.
func (f *FeatureService) Ping(ctx context.Context) error {
	for _, layer := range []string{f.check.Parent.Layer, f.check.Child.Layer} {
		params := url.Values{"f": {"json"}}
		if f.token != "" {
			params.Set("token", f.token)
		}
		var meta struct {
			Error *serviceError `json:"error"`
		}
		if err := f.get(ctx, strings.TrimRight(layer, "/"), params, &meta); err != nil {
			return unavailable("ping "+layer, err)
		}
		if meta.Error != nil {
			return unavailable("ping "+layer, meta.Error)
		}
	}
	return nil
}

// query pages through a layer until the service stops reporting
// exceededTransferLimit, calling fn for each feature's attributes.
func (f *FeatureService) query(ctx context.Context, layer, where string, outFields []string, orderBy string, fn func(map[string]interface{}) error) error {
	endpoint := strings.TrimRight(layer, "/") + "/query"
	log := f.log.WithLayer(layer)
	offset := 0
	var lastBounds string

	for {
		params := url.Values{
			"where":             {whereOrAll(where)},
			"outFields":         {strings.Join(outFields, ",")},
			"returnGeometry":    {"false"},
			"orderByFields":     {orderBy},
			"resultOffset":      {strconv.Itoa(offset)},
			"resultRecordCount": {strconv.Itoa(f.pageSize)},
			"f":                 {"json"},
		}
		if f.token != "" {
			params.Set("token", f.token)
		}

		var page queryResponse
		if err := f.get(ctx, endpoint, params, &page); err != nil {
			return err
		}
		if page.Error != nil {
			return page.Error
		}

		// Services without pagination support ignore resultOffset and
		// return the first page again.
		if bounds := pageBounds(page, orderBy); bounds != "" {
			if bounds == lastBounds {
				return fmt.Errorf("layer returned the same page at offset %d: pagination not supported", offset)
			}
			lastBounds = bounds
		}

		for _, feature := range page.Features {
			if err := fn(feature.Attributes); err != nil {
				return err
			}
		}

		log.Debugw("Fetched page", "offset", offset, "count", len(page.Features))

		if !page.ExceededTransferLimit || len(page.Features) == 0 {
			return nil
		}
		offset += len(page.Features)
	}
}

func (f *FeatureService) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// *url.Error prints the full URL, token included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("request %s: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// pageBounds identifies a page by the sort keys of its first and last
// features. It is empty when either key is null.
func pageBounds(page queryResponse, orderBy string) string {
	if len(page.Features) == 0 {
		return ""
	}
	first := attribute(page.Features[0].Attributes, orderBy)
	last := attribute(page.Features[len(page.Features)-1].Attributes, orderBy)
	if first == nil || last == nil {
		return ""
	}
	return fmt.Sprintf("%v|%v", first, last)
}

// attribute looks a field up by name, falling back to a case-insensitive
// match since services may change the case of field names.
func attribute(attrs map[string]interface{}, name string) interface{} {
	if v, ok := attrs[name]; ok {
		return v
	}
	for k, v := range attrs {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func childFromValues(c config.ChildLayerConfig, objectID, date, parent, creator, company interface{}) (types.ChildRecord, error) {
	id, err := types.ToInt64(objectID)
	if err != nil {
		return types.ChildRecord{}, fmt.Errorf("field %s: %w", c.ObjectIDField, err)
	}
	obs, err := types.ToTime(date)
	if err != nil {
		return types.ChildRecord{}, fmt.Errorf("field %s of object %d: %w", c.DateField, id, err)
	}
	return types.ChildRecord{
		ObjectID:        id,
		ObservationDate: obs,
		ParentReference: types.ToString(parent),
		CreatorName:     types.ToString(creator),
		BioCompany:      types.ToString(company),
	}, nil
}
