package dto

type ShortUserDTO struct {
	ID   uint64 `json:"id"`
	Fio  string `json:"fio"`
	Role string `json:"role,omitempty"`
}

type TechnicianDTO struct {
	ID     uint64 `json:"id"`
	Fio    string `json:"fio"`
	Status string `json:"status"`
}
