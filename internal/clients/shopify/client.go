package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"catalog-sync-service/internal/clients"
)

const apiVersion = "2024-01"

// Client implements clients.CatalogClient against the Shopify Admin GraphQL
// API. All field values are bound through GraphQL variables, never
// interpolated into the document.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
}

// NewClient creates a new Shopify Admin API client for the given store
// subdomain.
func NewClient(store, accessToken string, retryConfig *clients.RetryConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		endpoint:    fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", store, apiVersion),
		accessToken: accessToken,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1), // 2 requests per second
		retrier:     clients.NewRetrier(retryConfig),
	}
}

const productRefsQuery = `query productRefs($filter: String!, $cursor: String) {
  products(first: 250, query: $filter, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      variants(first: 1) {
        nodes { barcode inventoryItem { id } }
      }
    }
  }
}`

// QueryProductRefs fetches one page of existing products matching any of the
// given barcodes. Products without variants are omitted from the page.
func (c *Client) QueryProductRefs(ctx context.Context, keys []string, cursor string) (*clients.ProductRefPage, error) {
	terms := make([]string, len(keys))
	for i, k := range keys {
		terms[i] = fmt.Sprintf("barcode:%q", k)
	}
	variables := map[string]interface{}{
		"filter": strings.Join(terms, " OR "),
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	data, err := c.execute(ctx, "productRefs", productRefsQuery, variables)
	if err != nil {
		return nil, err
	}

	var response struct {
		Products struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				ID       string `json:"id"`
				Variants struct {
					Nodes []struct {
						Barcode       string `json:"barcode"`
						InventoryItem struct {
							ID string `json:"id"`
						} `json:"inventoryItem"`
					} `json:"nodes"`
				} `json:"variants"`
			} `json:"nodes"`
		} `json:"products"`
	}
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}

	page := &clients.ProductRefPage{
		HasMore:    response.Products.PageInfo.HasNextPage,
		NextCursor: response.Products.PageInfo.EndCursor,
	}
	for _, node := range response.Products.Nodes {
		if len(node.Variants.Nodes) == 0 {
			continue
		}
		first := node.Variants.Nodes[0]
		page.Refs = append(page.Refs, clients.ProductRef{
			ProductID:       node.ID,
			Barcode:         first.Barcode,
			InventoryItemID: first.InventoryItem.ID,
		})
	}
	return page, nil
}

// ProductSetBatch issues one mutation document with an aliased productSet
// sub-operation per input, so per-item results match back positionally.
func (c *Client) ProductSetBatch(ctx context.Context, inputs []clients.ProductSetInput) ([]clients.ProductSetResult, error) {
	var defs, ops []string
	variables := make(map[string]interface{}, len(inputs))
	for i, input := range inputs {
		name := fmt.Sprintf("input%d", i)
		defs = append(defs, fmt.Sprintf("$%s: ProductSetInput!", name))
		ops = append(ops, fmt.Sprintf(`p%d: productSet(input: $%s, synchronous: true) {
  product { id variants(first: 1) { nodes { inventoryItem { id } } } }
  userErrors { field message }
}`, i, name))
		variables[name] = productSetVariables(input)
	}
	doc := fmt.Sprintf("mutation productSetBatch(%s) {\n%s\n}",
		strings.Join(defs, ", "), strings.Join(ops, "\n"))

	data, err := c.execute(ctx, "productSetBatch", doc, variables)
	if err != nil {
		return nil, err
	}

	var payloads map[string]struct {
		Product *struct {
			ID       string `json:"id"`
			Variants struct {
				Nodes []struct {
					InventoryItem struct {
						ID string `json:"id"`
					} `json:"inventoryItem"`
				} `json:"nodes"`
			} `json:"variants"`
		} `json:"product"`
		UserErrors []wireUserError `json:"userErrors"`
	}
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("failed to parse productSet response: %w", err)
	}

	results := make([]clients.ProductSetResult, len(inputs))
	for i, input := range inputs {
		payload, ok := payloads[fmt.Sprintf("p%d", i)]
		if !ok {
			results[i] = clients.ProductSetResult{UserErrors: []clients.UserError{
				{Message: "missing result for sub-operation"},
			}}
			continue
		}
		result := clients.ProductSetResult{
			Created:    input.ProductID == "",
			UserErrors: convertUserErrors(payload.UserErrors),
		}
		if payload.Product != nil {
			result.ProductID = payload.Product.ID
			if len(payload.Product.Variants.Nodes) > 0 {
				result.InventoryItemID = payload.Product.Variants.Nodes[0].InventoryItem.ID
			}
		}
		results[i] = result
	}
	return results, nil
}

const inventoryAdjustMutation = `mutation inventoryAdjust($input: InventoryAdjustQuantitiesInput!) {
  inventoryAdjustQuantities(input: $input) {
    userErrors { field message }
  }
}`

// AdjustInventory applies all quantity deltas as one combined mutation.
func (c *Client) AdjustInventory(ctx context.Context, adjustments []clients.InventoryAdjustment) ([]clients.UserError, error) {
	changes := make([]map[string]interface{}, len(adjustments))
	for i, adj := range adjustments {
		changes[i] = map[string]interface{}{
			"inventoryItemId": adj.InventoryItemID,
			"locationId":      adj.LocationID,
			"delta":           adj.Delta,
		}
	}
	variables := map[string]interface{}{
		"input": map[string]interface{}{
			"reason":  "correction",
			"name":    "available",
			"changes": changes,
		},
	}

	data, err := c.execute(ctx, "inventoryAdjust", inventoryAdjustMutation, variables)
	if err != nil {
		return nil, err
	}

	var response struct {
		InventoryAdjustQuantities struct {
			UserErrors []wireUserError `json:"userErrors"`
		} `json:"inventoryAdjustQuantities"`
	}
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse inventory response: %w", err)
	}
	return convertUserErrors(response.InventoryAdjustQuantities.UserErrors), nil
}

// DeleteProducts removes products as one mutation document with an aliased
// productDelete sub-operation per id.
func (c *Client) DeleteProducts(ctx context.Context, productIDs []string) ([]clients.DeleteResult, error) {
	var defs, ops []string
	variables := make(map[string]interface{}, len(productIDs))
	for i := range productIDs {
		name := fmt.Sprintf("input%d", i)
		defs = append(defs, fmt.Sprintf("$%s: ProductDeleteInput!", name))
		ops = append(ops, fmt.Sprintf(`d%d: productDelete(input: $%s) {
  deletedProductId
  userErrors { field message }
}`, i, name))
		variables[name] = map[string]interface{}{"id": productIDs[i]}
	}
	doc := fmt.Sprintf("mutation productDeleteBatch(%s) {\n%s\n}",
		strings.Join(defs, ", "), strings.Join(ops, "\n"))

	data, err := c.execute(ctx, "productDeleteBatch", doc, variables)
	if err != nil {
		return nil, err
	}

	var payloads map[string]struct {
		DeletedProductID string          `json:"deletedProductId"`
		UserErrors       []wireUserError `json:"userErrors"`
	}
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("failed to parse productDelete response: %w", err)
	}

	results := make([]clients.DeleteResult, len(productIDs))
	for i, id := range productIDs {
		payload := payloads[fmt.Sprintf("d%d", i)]
		results[i] = clients.DeleteResult{
			ProductID:  id,
			UserErrors: convertUserErrors(payload.UserErrors),
		}
	}
	return results, nil
}

const attachImageMutation = `mutation attachImage($productId: ID!, $media: [CreateMediaInput!]!) {
  productCreateMedia(productId: $productId, media: $media) {
    mediaUserErrors { field message }
  }
}`

// AttachImage attaches one image by source URL to an existing product.
func (c *Client) AttachImage(ctx context.Context, productID, imageURL string) error {
	variables := map[string]interface{}{
		"productId": productID,
		"media": []map[string]interface{}{
			{"originalSource": imageURL, "mediaContentType": "IMAGE"},
		},
	}

	data, err := c.execute(ctx, "attachImage", attachImageMutation, variables)
	if err != nil {
		return err
	}

	var response struct {
		ProductCreateMedia struct {
			MediaUserErrors []wireUserError `json:"mediaUserErrors"`
		} `json:"productCreateMedia"`
	}
	if err := json.Unmarshal(data, &response); err != nil {
		return fmt.Errorf("failed to parse media response: %w", err)
	}
	if errs := response.ProductCreateMedia.MediaUserErrors; len(errs) > 0 {
		return fmt.Errorf("image attachment rejected: %s", errs[0].Message)
	}
	return nil
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type wireUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// execute sends one GraphQL request through the rate limiter and the
// retrier. Throttling signals (HTTP 429 or a THROTTLED error code) are
// retried with increasing delay; any other failure surfaces immediately.
func (c *Client) execute(ctx context.Context, operation, query string, variables map[string]interface{}) (json.RawMessage, error) {
	var data json.RawMessage
	err := c.retrier.Do(operation, func() error {
		var callErr error
		data, callErr = c.doRequest(ctx, query, variables)
		return callErr
	})
	return data, err
}

func (c *Client) doRequest(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &clients.ThrottledError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("Shopify API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL response: %w", err)
	}
	if len(response.Errors) > 0 {
		first := response.Errors[0]
		if first.Extensions.Code == "THROTTLED" {
			return nil, &clients.ThrottledError{Message: first.Message}
		}
		return nil, fmt.Errorf("GraphQL error: %s", first.Message)
	}
	return response.Data, nil
}

// productSetVariables builds the variable payload for one productSet
// sub-operation.
func productSetVariables(input clients.ProductSetInput) map[string]interface{} {
	variant := map[string]interface{}{
		"sku":     input.SKU,
		"barcode": input.Barcode,
		"price":   input.Price.String(),
	}
	payload := map[string]interface{}{
		"title":           input.Title,
		"descriptionHtml": input.Description,
		"vendor":          input.Brand,
		"productType":     input.ProductType,
		"variants":        []map[string]interface{}{variant},
	}
	if input.ProductID != "" {
		payload["id"] = input.ProductID
	}
	return payload
}

func convertUserErrors(errs []wireUserError) []clients.UserError {
	if len(errs) == 0 {
		return nil
	}
	converted := make([]clients.UserError, len(errs))
	for i, e := range errs {
		converted[i] = clients.UserError{
			Field:   strings.Join(e.Field, "."),
			Message: e.Message,
		}
	}
	return converted
}
