package mqtt

import "fmt"

type Topics struct {
	domainID  string
	channelID string
}

func NewTopics(domainID, channelID string) Topics {
	return Topics{
		domainID:  domainID,
		channelID: channelID,
	}
}

func (t Topics) Base() string {
	return fmt.Sprintf("m/%s/c/%s", t.domainID, t.channelID)
}

func (t Topics) ClientCreate() string {
	return t.Base() + "/control/client/create"
}

func (t Topics) ClientAlive() string {
	return t.Base() + "/control/client/alive"
}

func (t Topics) RoundEvents() string {
	return t.Base() + "/fl/rounds"
}

func (t Topics) RunEvents() string {
	return t.Base() + "/fl/runs"
}

func (t Topics) All() string {
	return t.Base() + "/#"
}
