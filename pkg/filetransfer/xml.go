package filetransfer

import "encoding/xml"

// Namespace is the ms-filetransfer XML namespace URI. The Request,
// Response and Notify struct tags use local names only: marshalled
// messages carry no xmlns declaration, and inbound messages are matched
// by local element name whatever namespace they declare.
const Namespace = "http://schemas.microsoft.com/rtc/2009/05/filetransfer"

// FileInfo is the shared id/name/size triple used by publishFile,
// downloadFile and cancelTransfer. Size is a pointer because
// downloadFile and cancelTransfer's nested fileInfo omit it.
type FileInfo struct {
	ID string `xml:"id"`
	Name string `xml:"name"`
	Size *int64 `xml:"size,omitempty"`
}

// PublishFile announces an outgoing transfer to the peer.
type PublishFile struct {
	FileInfo FileInfo `xml:"fileInfo"`
}

// DownloadFile is the receiver's request to begin the binary transfer.
type DownloadFile struct {
	FileInfo FileInfo `xml:"fileInfo"`
}

// CancelTransfer carries the transferId (the requestId of the
// publishFile/downloadFile exchange being cancelled) and, per the
// reference client's own templates, a repetition of the file's id and
// name.
type CancelTransfer struct {
	TransferID string `xml:"transferId"`
	FileInfo *FileInfo `xml:"fileInfo,omitempty"`
}

// Request is the ms-filetransfer <request> root element. Exactly one
// of PublishFile, DownloadFile or CancelTransfer is set.
type Request struct {
	XMLName xml.Name `xml:"request"`
	RequestID string `xml:"requestId,attr"`
	PublishFile *PublishFile `xml:"publishFile,omitempty"`
	DownloadFile *DownloadFile `xml:"downloadFile,omitempty"`
	CancelTransfer *CancelTransfer `xml:"cancelTransfer,omitempty"`
}

// Response codes named.
const (
	CodeSuccess = "success"
	CodePending = "pending"
	CodeFailure = "failure"
)

// Failure reasons named.
const ReasonRequestCancelled = "requestCancelled"

// Response is the ms-filetransfer <response> root element.
type Response struct {
	XMLName xml.Name `xml:"response"`
	RequestID string `xml:"requestId,attr"`
	Code string `xml:"code,attr"`
	Reason string `xml:"reason,attr,omitempty"`
}

// BytesReceived is the inclusive byte range a progress notify covers.
type BytesReceived struct {
	From int64 `xml:"from"`
	To int64 `xml:"to"`
}

// FileTransferProgress reports how much of the transfer has arrived.
type FileTransferProgress struct {
	TransferID string `xml:"transferId"`
	BytesReceived BytesReceived `xml:"bytesReceived"`
}

// Notify is the ms-filetransfer <notify> root element.
type Notify struct {
	XMLName xml.Name `xml:"notify"`
	NotifyID string `xml:"notifyId,attr"`
	FileTransferProgress *FileTransferProgress `xml:"fileTransferProgress,omitempty"`
}

// rootName sniffs the root element's local name without fully
// unmarshalling, so the dispatcher can pick which of Request/Response/
// Notify to decode into.
func rootName(body []byte) (string, error) {
	var probe struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(body, &probe); err != nil {
		return "", err
	}
	return probe.XMLName.Local, nil
}
