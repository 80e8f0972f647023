package sdk

import (
	"encoding/json"
	"net/http"

	"github.com/absmach/cohort/client"
)

const clientsEndpoint = "/clients"

type ClientRequest struct {
	ClientID  string `json:"client_id"`
	Name      string `json:"name,omitempty"`
	Address   string `json:"address,omitempty"`
	Available *bool  `json:"available,omitempty"`
}

func (sdk *cohortSDK) RegisterClient(req ClientRequest) (client.Registration, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return client.Registration{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.hostURL+clientsEndpoint, data, http.StatusCreated)
	if err != nil {
		return client.Registration{}, err
	}

	return decodeRegistration(body)
}

func (sdk *cohortSDK) GetClient(id string) (client.Registration, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.hostURL+clientsEndpoint+"/"+id, nil, http.StatusOK)
	if err != nil {
		return client.Registration{}, err
	}

	return decodeRegistration(body)
}

func (sdk *cohortSDK) ListClients(offset, limit uint64) (client.RegistrationPage, error) {
	url := sdk.hostURL + clientsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return client.RegistrationPage{}, err
	}

	var page client.RegistrationPage
	if err := json.Unmarshal(body, &page); err != nil {
		return client.RegistrationPage{}, err
	}

	return page, nil
}

func (sdk *cohortSDK) SetAvailability(id string, available bool) (client.Registration, error) {
	data, err := json.Marshal(map[string]bool{"available": available})
	if err != nil {
		return client.Registration{}, err
	}
	url := sdk.hostURL + clientsEndpoint + "/" + id + "/availability"

	body, err := sdk.processRequest(http.MethodPut, url, data, http.StatusOK)
	if err != nil {
		return client.Registration{}, err
	}

	return decodeRegistration(body)
}

func (sdk *cohortSDK) RemoveClient(id string) error {
	_, err := sdk.processRequest(http.MethodDelete, sdk.hostURL+clientsEndpoint+"/"+id, nil, http.StatusNoContent)

	return err
}

func decodeRegistration(body []byte) (client.Registration, error) {
	var reg client.Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		return client.Registration{}, err
	}

	return reg, nil
}
